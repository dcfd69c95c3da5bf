package models

import "fmt"

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int
	// The human-readable label.
	Name string
}

// OutputClassSet is the full list of labels a model can emit.
type OutputClassSet struct {
	// Class set identifier.
	Style string
	// Classes that are supported and mappable.
	Classes []OutputClass
}

// Name returns the label for idx, or "class_<idx>" when idx is unknown.
func (s OutputClassSet) Name(idx int) string {
	for _, c := range s.Classes {
		if c.Index == idx {
			return c.Name
		}
	}
	return fmt.Sprintf("class_%d", idx)
}

// Index returns the index registered for name.
func (s OutputClassSet) Index(name string) (int, error) {
	for _, c := range s.Classes {
		if c.Name == name {
			return c.Index, nil
		}
	}
	return -1, fmt.Errorf("name %q not found in style %q", name, s.Style)
}

// SignatureClasses is the single class set of the signature models.
var SignatureClasses = OutputClassSet{
	Style: "signature",
	Classes: []OutputClass{
		{0, "signature"},
	},
}
