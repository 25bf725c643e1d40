package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"principal-registry/internal/domain"
)

// stateFlag is a --state value restricted to the principal states.
// The empty value means no state filter.
type stateFlag domain.PrincipalState

var _ pflag.Value = (*stateFlag)(nil)

func (s *stateFlag) String() string { return string(*s) }

func (s *stateFlag) Set(v string) error {
	st := domain.PrincipalState(strings.ToUpper(strings.TrimSpace(v)))
	if !st.Valid() {
		return fmt.Errorf("invalid --state %q: use ENABLED or DISABLED", v)
	}
	*s = stateFlag(st)
	return nil
}

func (s *stateFlag) Type() string { return "state" }
