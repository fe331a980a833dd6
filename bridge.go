package glint

import (
	"fmt"
	"math"
	"math/big"
)

// Names of the bridge primitives as seen from REPL units
const (
	bridgeModule   = "repl"
	bridgeSaveName = "repl_save"
	bridgeLoadName = "repl_load"
)

// valueStore is the append-only array behind the bridge; slot i holds the
// value of the binding created with slot i, or nil when its save never
// happened. savedSlot is the slot written by the current run, or -1.
type valueStore struct {
	values    []Value
	savedSlot int
}

func (s *valueStore) startRun() {
	s.savedSlot = -1
}

func (s *valueStore) save(slot int, v Value) error {
	if slot < len(s.values) && s.values[slot] != nil {
		return fmt.Errorf("slot %d already holds a value", slot)
	}
	for len(s.values) <= slot {
		s.values = append(s.values, nil)
	}
	s.values[slot] = v
	s.savedSlot = slot
	return nil
}

func (s *valueStore) load(slot int) (Value, bool) {
	if slot < 0 || slot >= len(s.values) {
		return nil, false
	}
	v := s.values[slot]
	if v == nil {
		return nil, false
	}
	return v, true
}

func (s *valueStore) len() int {
	return len(s.values)
}

func slotArg(v Value) (int, error) {
	n := v.(*big.Int)
	if !n.IsInt64() || n.Sign() < 0 || n.Int64() > math.MaxInt32 {
		return 0, fmt.Errorf("invalid slot %s", n)
	}
	return int(n.Int64()), nil
}

func registerBridgeNatives() {
	registerNative("repl.save", 2, func(m *Machine, args []Value) (Value, error) {
		slot, err := slotArg(args[1])
		if err != nil {
			return nil, err
		}
		if err := m.store.save(slot, args[0]); err != nil {
			return nil, err
		}
		m.logger.DebugCat(CatBridge, "saved slot %d", slot)
		return args[0], nil
	})
	registerNative("repl.load", 1, func(m *Machine, args []Value) (Value, error) {
		slot, err := slotArg(args[0])
		if err != nil {
			return nil, err
		}
		v, ok := m.store.load(slot)
		if !ok {
			return nil, fmt.Errorf("no value saved in slot %d", slot)
		}
		return v, nil
	})
}

// bridgeHeader declares the bridge primitives at the top of every REPL unit
const bridgeHeader = `@external(native, "repl", "save")
fn repl_save(value: a, slot: Int) -> a
@external(native, "repl", "load")
fn repl_load(slot: Int) -> a
`

// ValueBridge ties session slots to the engine's value store
type ValueBridge struct {
	engine Engine
	logger *Logger
}

// NewValueBridge creates a bridge over an engine
func NewValueBridge(engine Engine, logger *Logger) *ValueBridge {
	return &ValueBridge{engine: engine, logger: logger}
}

// Saved reports whether the last run wrote slot
func (b *ValueBridge) Saved(slot int) bool {
	ok := b.engine.SlotSaved(slot)
	b.logger.DebugCat(CatBridge, "slot %d saved by last run: %t (store length %d)", slot, ok, b.engine.StoreLen())
	return ok
}

// ShimLine rebinds a saved variable inside a generated function body
func ShimLine(name string, v VarBinding) string {
	return fmt.Sprintf("  let %s: %s = %s(%d)\n", name, v.Type, bridgeLoadName, v.Slot)
}

// SaveCall wraps an expression so its value is stored in slot before it is
// shown
func SaveCall(expr string, slot int) string {
	return fmt.Sprintf("%s(%s, %d)", bridgeSaveName, expr, slot)
}

// reservedPrefix starts every name the generated units declare
const reservedPrefix = "repl_"
