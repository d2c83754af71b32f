package analysis

// Descriptor is the persistent form of a parser: its ID and variant name.
// The line transformer is behavior, not data, and is never serialized.
type Descriptor struct {
	ID      string `json:"id" msgpack:"id"`
	Variant string `json:"variant" msgpack:"variant"`
}

// DescriptorOf captures p as a Descriptor.
func DescriptorOf(p Parser) Descriptor {
	return Descriptor{ID: p.ID(), Variant: variantName(p)}
}

func (d Descriptor) String() string {
	return d.ID + " (" + d.Variant + ")"
}
