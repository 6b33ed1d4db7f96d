package conflict

// Kind tells the classified conflict types apart.
type Kind int

const (
	// KindPassword is an encrypted secret whose sides all decrypt.
	KindPassword Kind = iota
	// KindGpgID is a recipients file whose sides all parse as key ids.
	KindGpgID
	// KindPlainText is any other conflict whose sides are valid UTF-8.
	KindPlainText
	// KindBinary is everything else.
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindPassword:
		return "password"
	case KindGpgID:
		return "recipients"
	case KindPlainText:
		return "text"
	case KindBinary:
		return "binary"
	}
	return "unknown"
}

// Conflict is the behaviour shared by every classified conflict.
type Conflict interface {
	Path() string
	Kind() Kind
	Sides() Sides
	IsResolved() bool
}

// state carries the sides, the resolver that owns the conflict and the
// one-shot resolved flag.
type state struct {
	sides    Sides
	owner    *Resolver
	resolved bool
}

func (s *state) Path() string { return s.sides.Path() }

// Sides returns the raw staged versions.
func (s *state) Sides() Sides { return s.sides }

func (s *state) IsResolved() bool { return s.resolved }

func (s *state) begin(r *Resolver) error {
	if r == nil || r != s.owner {
		return ErrForeignResolver
	}
	if err := r.checkOpen(); err != nil {
		return err
	}
	if s.resolved {
		return ErrAlreadyResolved
	}
	return nil
}
