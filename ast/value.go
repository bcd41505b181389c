// Package ast implements the ThingTalk abstract syntax tree: values,
// filter and scalar expressions, streams, tables, actions, statements,
// programs, class/function definitions, datasets, examples and
// permission rules. Every node is immutable from the outside except for
// a mutable Schema slot filled in by semantic analysis; a visitor
// protocol (IteratePrimitives) walks the tree.
package ast

import (
	"fmt"
	"strings"

	"github.com/stanford-oval/thingtalk/types"
)

// Value is the common interface implemented by every ThingTalk value, per
// §3.2. Each value has a unique concrete type and reports whether it is
// fully concrete (no remaining Undefined placeholders or relative tags).
type Value interface {
	// Type returns the value's ThingTalk type.
	Type() types.Type
	// IsConcrete reports whether the value contains no Undefined
	// placeholder and no unresolved relative tag (e.g. current_location).
	IsConcrete() bool
	// Clone returns a deep, independent copy of the value.
	Clone() Value
	// String renders the value for diagnostics; it is not a stable
	// on-wire format (that is the pretty-printer's concern).
	String() string
}

// BooleanValue is a literal true/false.
type BooleanValue struct{ V bool }

func (v *BooleanValue) Type() types.Type { return types.Boolean }
func (v *BooleanValue) IsConcrete() bool { return true }
func (v *BooleanValue) Clone() Value     { return &BooleanValue{V: v.V} }
func (v *BooleanValue) String() string   { return fmt.Sprintf("%v", v.V) }

// StringValue is a literal string.
type StringValue struct{ V string }

func (v *StringValue) Type() types.Type { return types.String }
func (v *StringValue) IsConcrete() bool { return true }
func (v *StringValue) Clone() Value     { return &StringValue{V: v.V} }
func (v *StringValue) String() string   { return fmt.Sprintf("%q", v.V) }

// NumberValue is a literal number.
type NumberValue struct{ V float64 }

func (v *NumberValue) Type() types.Type { return types.Number }
func (v *NumberValue) IsConcrete() bool { return true }
func (v *NumberValue) Clone() Value     { return &NumberValue{V: v.V} }
func (v *NumberValue) String() string   { return fmt.Sprintf("%g", v.V) }

// CurrencyValue is an amount tagged with an ISO currency code.
type CurrencyValue struct {
	Amount float64
	Code   string
}

func (v *CurrencyValue) Type() types.Type { return types.Currency }
func (v *CurrencyValue) IsConcrete() bool { return true }
func (v *CurrencyValue) Clone() Value     { return &CurrencyValue{Amount: v.Amount, Code: v.Code} }
func (v *CurrencyValue) String() string   { return fmt.Sprintf("%g%s", v.Amount, v.Code) }

// MeasureValue is an amount tagged with a surface unit; Type reports the
// measure's normalized base unit.
type MeasureValue struct {
	Amount   float64
	Unit     string
	BaseUnit string
}

// NewMeasureValue constructs a MeasureValue, normalizing unit to its base
// unit. It returns an error if unit is not recognized.
func NewMeasureValue(amount float64, unit string) (*MeasureValue, error) {
	base, err := types.NormalizeUnit(unit)
	if err != nil {
		return nil, err
	}
	return &MeasureValue{Amount: amount, Unit: unit, BaseUnit: base}, nil
}

func (v *MeasureValue) Type() types.Type { return types.Measure(v.BaseUnit) }
func (v *MeasureValue) IsConcrete() bool { return true }
func (v *MeasureValue) Clone() Value {
	return &MeasureValue{Amount: v.Amount, Unit: v.Unit, BaseUnit: v.BaseUnit}
}
func (v *MeasureValue) String() string { return fmt.Sprintf("%g%s", v.Amount, v.Unit) }

// EntityValue is an opaque entity reference, e.g. "bob"^^tt:username.
type EntityValue struct {
	ID      string
	Kind    string
	Display string // optional, empty if absent
}

func (v *EntityValue) Type() types.Type { return types.Entity(v.Kind) }
func (v *EntityValue) IsConcrete() bool { return true }
func (v *EntityValue) Clone() Value {
	return &EntityValue{ID: v.ID, Kind: v.Kind, Display: v.Display}
}
func (v *EntityValue) String() string {
	if v.Display != "" {
		return fmt.Sprintf("%q^^%s(%q)", v.ID, v.Kind, v.Display)
	}
	return fmt.Sprintf("%q^^%s", v.ID, v.Kind)
}

// LocationRelativeTag names a relative location reference that has not
// yet been resolved to absolute coordinates by the host.
type LocationRelativeTag int

const (
	// LocationNone means Lat/Lon hold an absolute coordinate.
	LocationNone LocationRelativeTag = iota
	LocationCurrent
	LocationHome
	LocationWork
)

// LocationValue is a geographic coordinate, or a relative reference
// ($location.current_location, .home, .work) awaiting host resolution.
type LocationValue struct {
	Lat, Lon float64
	Display  string
	Relative LocationRelativeTag
}

func (v *LocationValue) Type() types.Type { return types.Location }
func (v *LocationValue) IsConcrete() bool { return v.Relative == LocationNone }
func (v *LocationValue) Clone() Value {
	return &LocationValue{Lat: v.Lat, Lon: v.Lon, Display: v.Display, Relative: v.Relative}
}
func (v *LocationValue) String() string {
	switch v.Relative {
	case LocationCurrent:
		return "$location.current_location"
	case LocationHome:
		return "$location.home"
	case LocationWork:
		return "$location.work"
	default:
		return fmt.Sprintf("Location(%g, %g)", v.Lat, v.Lon)
	}
}

// TimeValue is a wall-clock time of day.
type TimeValue struct{ Hour, Minute, Second int }

func (v *TimeValue) Type() types.Type { return types.Time }
func (v *TimeValue) IsConcrete() bool { return true }
func (v *TimeValue) Clone() Value     { return &TimeValue{Hour: v.Hour, Minute: v.Minute, Second: v.Second} }
func (v *TimeValue) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", v.Hour, v.Minute, v.Second)
}

// DateEdge names a relative calendar edge (start_of/end_of a unit) or a
// "date piece" extraction; DateNone means Absolute holds a concrete time.
type DateEdge int

const (
	DateNone DateEdge = iota
	DateStartOf
	DateEndOf
)

// DateValue is either an absolute timestamp (Unix millis) or a
// start_of/end_of-relative edge tagged with a calendar unit
// ("day","week","month","year").
type DateValue struct {
	AbsoluteMillis int64
	Edge           DateEdge
	Unit           string // calendar unit when Edge != DateNone
}

func (v *DateValue) Type() types.Type { return types.Date }
func (v *DateValue) IsConcrete() bool { return v.Edge == DateNone }
func (v *DateValue) Clone() Value {
	return &DateValue{AbsoluteMillis: v.AbsoluteMillis, Edge: v.Edge, Unit: v.Unit}
}
func (v *DateValue) String() string {
	if v.Edge == DateNone {
		return fmt.Sprintf("Date(%d)", v.AbsoluteMillis)
	}
	name := "start_of"
	if v.Edge == DateEndOf {
		name = "end_of"
	}
	return fmt.Sprintf("%s(%s)", name, v.Unit)
}

// EnumValue is a single enum symbol.
type EnumValue struct {
	Symbol string
	// EnumT is the declared enum type, when known; nil means the symbol's
	// type is still an open, unconstrained enum.
	EnumT *types.EnumType
}

func (v *EnumValue) Type() types.Type {
	if v.EnumT != nil {
		return v.EnumT
	}
	return types.Enum(nil)
}
func (v *EnumValue) IsConcrete() bool { return true }
func (v *EnumValue) Clone() Value     { return &EnumValue{Symbol: v.Symbol, EnumT: v.EnumT} }
func (v *EnumValue) String() string   { return "enum(" + v.Symbol + ")" }

// ArrayValue is a literal array of values.
type ArrayValue struct {
	Elements []Value
	// ElemType is the declared element type used when the array is
	// empty (and so the element type cannot be inferred from Elements).
	ElemType types.Type
}

func (v *ArrayValue) Type() types.Type {
	if v.ElemType != nil {
		return types.Array(v.ElemType)
	}
	if len(v.Elements) == 0 {
		return types.Array(types.Var("a"))
	}
	return types.Array(v.Elements[0].Type())
}
func (v *ArrayValue) IsConcrete() bool {
	for _, e := range v.Elements {
		if !e.IsConcrete() {
			return false
		}
	}
	return true
}
func (v *ArrayValue) Clone() Value {
	elems := make([]Value, len(v.Elements))
	for i, e := range v.Elements {
		elems[i] = e.Clone()
	}
	return &ArrayValue{Elements: elems, ElemType: v.ElemType}
}
func (v *ArrayValue) String() string {
	parts := make([]string, len(v.Elements))
	for i, e := range v.Elements {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// CompoundValue is a literal record of named field values.
type CompoundValue struct {
	Name   string
	Fields map[string]Value
	Order  []string
}

func (v *CompoundValue) Type() types.Type {
	fields := make(map[string]types.Type, len(v.Fields))
	for k, fv := range v.Fields {
		fields[k] = fv.Type()
	}
	return types.Compound(v.Name, fields, v.Order)
}
func (v *CompoundValue) IsConcrete() bool {
	for _, fv := range v.Fields {
		if !fv.IsConcrete() {
			return false
		}
	}
	return true
}
func (v *CompoundValue) Clone() Value {
	fields := make(map[string]Value, len(v.Fields))
	for k, fv := range v.Fields {
		fields[k] = fv.Clone()
	}
	return &CompoundValue{Name: v.Name, Fields: fields, Order: append([]string(nil), v.Order...)}
}
func (v *CompoundValue) String() string {
	parts := make([]string, 0, len(v.Order))
	for _, k := range v.Order {
		parts = append(parts, k+"="+v.Fields[k].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ArgMapValue is a literal mapping from argument name to declared type,
// used for dynamically constructing compound/record shapes.
type ArgMapValue struct {
	Names []string
	Types map[string]types.Type
}

func (v *ArgMapValue) Type() types.Type { return types.ArgMap }
func (v *ArgMapValue) IsConcrete() bool { return true }
func (v *ArgMapValue) Clone() Value {
	types2 := make(map[string]types.Type, len(v.Types))
	for k, t := range v.Types {
		types2[k] = t
	}
	return &ArgMapValue{Names: append([]string(nil), v.Names...), Types: types2}
}
func (v *ArgMapValue) String() string { return "ArgMap(" + strings.Join(v.Names, ",") + ")" }

// VarRefValue refers to a name bound in the lexical Scope (a lambda
// parameter, a primitive's own output argument, a global declaration, or
// a "$"-prefixed environment reference such as $event).
type VarRefValue struct {
	Name string
	// Resolved is filled in by semantic analysis with the referenced
	// type, or left nil until then.
	Resolved types.Type
}

func (v *VarRefValue) Type() types.Type {
	if v.Resolved != nil {
		return v.Resolved
	}
	return types.Any
}
func (v *VarRefValue) IsConcrete() bool { return false }
func (v *VarRefValue) Clone() Value     { return &VarRefValue{Name: v.Name, Resolved: v.Resolved} }
func (v *VarRefValue) String() string   { return v.Name }

// ComputationOp enumerates the scalar computation operators of §4.4's
// ScalarExpressionOps table.
type ComputationOp string

const (
	OpAdd      ComputationOp = "+"
	OpSub      ComputationOp = "-"
	OpMul      ComputationOp = "*"
	OpDiv      ComputationOp = "/"
	OpMod      ComputationOp = "%"
	OpPow      ComputationOp = "**"
	OpDistance ComputationOp = "distance"
	OpMax      ComputationOp = "max"
	OpMin      ComputationOp = "min"
	OpSum      ComputationOp = "sum"
	OpAvg      ComputationOp = "avg"
	OpCount    ComputationOp = "count"
)

// ComputationValue represents an inline arithmetic/aggregation
// expression embedded as a value, e.g. inside a default-value position.
type ComputationValue struct {
	Op       ComputationOp
	Operands []Value
	// Resolved is filled in by semantic analysis.
	Resolved types.Type
}

func (v *ComputationValue) Type() types.Type {
	if v.Resolved != nil {
		return v.Resolved
	}
	return types.Any
}
func (v *ComputationValue) IsConcrete() bool { return false }
func (v *ComputationValue) Clone() Value {
	ops := make([]Value, len(v.Operands))
	for i, o := range v.Operands {
		ops[i] = o.Clone()
	}
	return &ComputationValue{Op: v.Op, Operands: ops, Resolved: v.Resolved}
}
func (v *ComputationValue) String() string {
	parts := make([]string, len(v.Operands))
	for i, o := range v.Operands {
		parts[i] = o.String()
	}
	return string(v.Op) + "(" + strings.Join(parts, ", ") + ")"
}

// EventValue refers to $event or one of its sub-fields ($event.program_id,
// $event.type); Kind == "" means the bare $event merged-record reference.
type EventValue struct {
	Kind string
}

func (v *EventValue) Type() types.Type {
	switch v.Kind {
	case "program_id", "type":
		return types.String
	default:
		return types.Any
	}
}
func (v *EventValue) IsConcrete() bool { return false }
func (v *EventValue) Clone() Value     { return &EventValue{Kind: v.Kind} }
func (v *EventValue) String() string {
	if v.Kind == "" {
		return "$event"
	}
	return "$event." + v.Kind
}

// UndefinedValue is a slot-filling hole (§4.4's "input parameters not
// supplied ... are auto-filled with Undefined(local=true)").
type UndefinedValue struct {
	// IsLocal distinguishes a hole the host should prompt the user to
	// fill locally (true) from one that is inherited from an outer
	// scope and resolved there (false).
	IsLocal bool
}

func (v *UndefinedValue) Type() types.Type { return types.Any }
func (v *UndefinedValue) IsConcrete() bool { return false }
func (v *UndefinedValue) Clone() Value     { return &UndefinedValue{IsLocal: v.IsLocal} }
func (v *UndefinedValue) String() string   { return "$?" }
