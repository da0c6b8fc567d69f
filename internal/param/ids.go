package param

import "github.com/dkotrev/piejam-engine-go/internal/id"

// The four parameter categories: bool, int,
// enum(int), float. Enum parameters share int's underlying value type
// but get their own identifier tag (and therefore their own map in
// [Parameters]) because a bool/int/enum/float id must never compare
// equal to an id of another category even when the raw counter value
// collides.
type (
	boolTag  struct{}
	intTag   struct{}
	enumTag  struct{}
	floatTag struct{}
)

type (
	BoolID  = id.Typed[boolTag]
	IntID   = id.Typed[intTag]
	EnumID  = id.Typed[enumTag]
	FloatID = id.Typed[floatTag]
)

// AnyID is the union of every parameter id category. Exactly one of
// the four fields is valid.
type AnyID struct {
	Bool  BoolID
	Int   IntID
	Enum  EnumID
	Float FloatID
}

// OfBool wraps a bool parameter id as an [AnyID].
func OfBool(i BoolID) AnyID { return AnyID{Bool: i} }

// OfInt wraps an int parameter id as an [AnyID].
func OfInt(i IntID) AnyID { return AnyID{Int: i} }

// OfEnum wraps an enum parameter id as an [AnyID].
func OfEnum(i EnumID) AnyID { return AnyID{Enum: i} }

// OfFloat wraps a float parameter id as an [AnyID].
func OfFloat(i FloatID) AnyID { return AnyID{Float: i} }

// Parameters is the parameter store: one typed [Store] per
// category, all reachable through a single value so reducers don't
// need to know which category a given generic operation applies to.
type Parameters struct {
	Bools   Store[boolTag, bool]
	Ints    Store[intTag, int]
	Enums   Store[enumTag, int]
	Floats  Store[floatTag, float64]
	boolGen id.TypedGenerator[boolTag]
	intGen  id.TypedGenerator[intTag]
	enumGen id.TypedGenerator[enumTag]
	fltGen  id.TypedGenerator[floatTag]
}

// AddBool registers a new bool parameter and returns its id.
func (p *Parameters) AddBool(d Descriptor[bool]) BoolID {
	pid := p.boolGen.Next()
	p.Bools.Emplace(pid, d)
	return pid
}

// AddInt registers a new int parameter and returns its id.
func (p *Parameters) AddInt(d Descriptor[int]) IntID {
	pid := p.intGen.Next()
	p.Ints.Emplace(pid, d)
	return pid
}

// AddEnum registers a new enum(int) parameter and returns its id.
func (p *Parameters) AddEnum(d Descriptor[int]) EnumID {
	pid := p.enumGen.Next()
	p.Enums.Emplace(pid, d)
	return pid
}

// AddFloat registers a new float parameter and returns its id.
func (p *Parameters) AddFloat(d Descriptor[float64]) FloatID {
	pid := p.fltGen.Next()
	p.Floats.Emplace(pid, d)
	return pid
}
