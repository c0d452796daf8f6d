package valuemap

import (
	"github.com/henderiw/intervalcollection/pkg/valuetype"
	"k8s.io/apimachinery/pkg/labels"
)

const (
	KeyLabel       = "key"
	ValueTypeLabel = "valueType"
)

type Entry interface {
	Key() string
	ValueType() string
	Value() any
	Labels() labels.Set
}

type entry struct {
	key     string
	handler valuetype.Handler
	value   any
}

func (r *entry) Key() string       { return r.key }
func (r *entry) ValueType() string { return r.handler.Name() }
func (r *entry) Value() any        { return r.value }

func (r *entry) Labels() labels.Set {
	return labels.Set{
		KeyLabel:       r.key,
		ValueTypeLabel: r.handler.Name(),
	}
}
