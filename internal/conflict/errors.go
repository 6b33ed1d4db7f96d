package conflict

import "errors"

var (
	// ErrUnresolvedConflicts is returned by Finish while the staged index
	// still has conflicted paths. The resolver stays usable.
	ErrUnresolvedConflicts = errors.New("unresolved conflicts remain")

	// ErrAlreadyResolved is returned when a conflict is resolved a second time.
	ErrAlreadyResolved = errors.New("conflict already resolved")

	// ErrResolverConsumed is returned by any call on a resolver that has
	// already finished or been aborted.
	ErrResolverConsumed = errors.New("resolver already finished")

	// ErrUnknownPath is returned when a resolution targets a path none of the
	// conflict sides carry.
	ErrUnknownPath = errors.New("path does not belong to this conflict")

	// ErrNoRecipients is returned when no recipients file encloses a secret.
	ErrNoRecipients = errors.New("no recipients file found")

	// ErrRecipientsConflicted is returned when the nearest recipients file is
	// itself still conflicted.
	ErrRecipientsConflicted = errors.New("recipients file is conflicted")

	// ErrForeignResolver is returned when a conflict is resolved through a
	// resolver other than the one that classified it.
	ErrForeignResolver = errors.New("conflict belongs to another resolver")

	// ErrLineOutOfRange is returned by draft edits with a bad line index.
	ErrLineOutOfRange = errors.New("line index out of range")
)
