package internal

import (
	"fmt"
	"strings"

	"github.com/elliotchance/orderedmap/v2"
)

// Fields returns an ordered map to collect log fields in.
func Fields() *orderedmap.OrderedMap[string, any] {
	return orderedmap.NewOrderedMap[string, any]()
}

// FormatFields formats fields as "[k1=v1 k2=v2]", keeping the order they were set in.
func FormatFields(data *orderedmap.OrderedMap[string, any]) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, key := range data.Keys() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		v, _ := data.Get(key)
		_, _ = fmt.Fprintf(&sb, "%s=%v", key, v)
	}
	sb.WriteByte(']')
	return sb.String()
}
