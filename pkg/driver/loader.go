package driver

import (
	"fmt"

	"github.com/golang/glog"

	"sicasm/pkg/dataparse"
)

// DirectiveParser writes one data directive into m at *ctr and advances *ctr
// past it.
type DirectiveParser interface {
	Parse(m dataparse.Memory, ctr *int, text string) error
}

// LoadData writes every directive into m in order, starting at offset 0, and
// returns the final allocation counter. The grammar has already validated
// each directive, so any failure here is internal.
func LoadData(p DirectiveParser, m dataparse.Memory, data []string) (int, error) {
	ctr := 0
	for i, text := range data {
		before := ctr
		if err := p.Parse(m, &ctr, text); err != nil {
			return 0, &Error{Kind: InternalError, Detail: err.Error(), Err: err}
		}
		if ctr < before {
			return 0, &Error{
				Kind:   InternalError,
				Detail: fmt.Sprintf("allocation counter moved from %d back to %d", before, ctr),
			}
		}
		if glog.V(2) {
			glog.Infof("data[%d] %q -> [%d, %d)", i, text, before, ctr)
		}
	}
	return ctr, nil
}
