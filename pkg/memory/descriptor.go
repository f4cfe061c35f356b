package memory

import (
	"sort"
	"strings"
)

/*
Descriptor is the parsed form of the "type:key1=value1,key2=value2"
mini-language that packs a relationship's type and properties into a single
string argument.
*/
type Descriptor struct {
	Type       string
	Properties map[string]string
}

const descriptorHint = `Use "type:key1=value1,key2=value2", e.g. "works_at:position=developer,department=RnD", or a bare type like "knows".`

// ParseDescriptor splits a descriptor on the first ':' and each property
// segment on the first '='. Keys and values are trimmed of surrounding
// whitespace. A bare type ("knows" or "knows:") yields empty properties.
// A property segment without '=' is a format error; the same strict policy
// applies on both the create and delete paths.
func ParseDescriptor(descriptor string) (Descriptor, *StoreError) {
	head, rest, hasProps := strings.Cut(descriptor, ":")

	desc := Descriptor{
		Type:       strings.TrimSpace(head),
		Properties: map[string]string{},
	}

	if desc.Type == "" {
		return Descriptor{}, newError(
			KindFormat, "relationship descriptor has no type: %q", descriptor,
		).WithDetails(descriptorHint)
	}

	if !hasProps || strings.TrimSpace(rest) == "" {
		return desc, nil
	}

	for _, prop := range strings.Split(rest, ",") {
		key, value, ok := strings.Cut(prop, "=")

		if !ok {
			return Descriptor{}, newError(
				KindFormat, "invalid property segment %q in descriptor %q", prop, descriptor,
			).WithDetails(descriptorHint)
		}

		desc.Properties[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return desc, nil
}

// String serializes the descriptor back into its packed form. Properties are
// emitted in key order so the output is deterministic; ParseDescriptor and
// String round-trip.
func (d Descriptor) String() string {
	if len(d.Properties) == 0 {
		return d.Type
	}

	keys := make([]string, 0, len(d.Properties))

	for k := range d.Properties {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))

	for _, k := range keys {
		pairs = append(pairs, k+"="+d.Properties[k])
	}

	return d.Type + ":" + strings.Join(pairs, ",")
}
