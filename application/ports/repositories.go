package ports

import (
	"context"
	"time"

	"evotree-backend/domain/core/entities"
	"evotree-backend/domain/core/valueobjects"
	"evotree-backend/domain/events"
)

// Repositories report a missing record with an AppError of type NOT_FOUND
// (pkgerrors.IsNotFound). Any other error is a storage failure.

// MechanicRepository defines the interface for mechanic persistence
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type MechanicRepository interface {
	// Create stores a new mechanic and returns it with its assigned ID
	Create(ctx context.Context, mechanic *entities.Mechanic) (*entities.Mechanic, error)

	// GetByID retrieves a mechanic by its ID
	GetByID(ctx context.Context, id valueobjects.MechanicID) (*entities.Mechanic, error)

	// ListAll returns every mechanic in ID order
	ListAll(ctx context.Context) ([]*entities.Mechanic, error)

	// Update replaces the stored fields of an existing mechanic
	Update(ctx context.Context, mechanic *entities.Mechanic) (*entities.Mechanic, error)

	// Delete removes a mechanic and every link that references it
	Delete(ctx context.Context, id valueobjects.MechanicID) error
}

// LinkRepository defines the interface for link persistence
type LinkRepository interface {
	// Create stores a new link and returns it with its assigned ID
	Create(ctx context.Context, link *entities.Link) (*entities.Link, error)

	// GetByID retrieves a link by its ID
	GetByID(ctx context.Context, id valueobjects.LinkID) (*entities.Link, error)

	// ListAll returns every link in ID order
	ListAll(ctx context.Context) ([]*entities.Link, error)

	// ListByFromID returns the outgoing links of a mechanic in ID order
	ListByFromID(ctx context.Context, fromID valueobjects.MechanicID) ([]*entities.Link, error)

	// Delete removes a link
	Delete(ctx context.Context, id valueobjects.LinkID) error
}

// UserRepository defines the interface for account persistence
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) (*entities.User, error)
	GetByID(ctx context.Context, id valueobjects.UserID) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	Update(ctx context.Context, user *entities.User) (*entities.User, error)
}

// EmailTokenRepository defines the interface for verification token persistence
type EmailTokenRepository interface {
	Create(ctx context.Context, token *entities.EmailToken) (*entities.EmailToken, error)
	GetByToken(ctx context.Context, token string) (*entities.EmailToken, error)
	MarkAsUsed(ctx context.Context, id int64) error

	// DeleteExpired removes tokens that expired before now and reports how many
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Cache defines the interface for the byte-oriented tree cache
type Cache interface {
	// Get retrieves a value; the bool is false on a miss
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value for ttl
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}

// GenerationCache is a Cache whose Clear advances a generation counter.
// SetIfGeneration stores value only when no Clear happened since gen was
// read, so a result computed from data older than the last Clear is dropped.
type GenerationCache interface {
	Cache

	// Generation returns the current generation
	Generation(ctx context.Context) (uint64, error)

	// SetIfGeneration stores value if the generation is still gen and
	// reports whether it did
	SetIfGeneration(ctx context.Context, gen uint64, key string, value []byte, ttl time.Duration) (bool, error)
}

// Mailer delivers account emails
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, username, link string) error
}

// Clock abstracts time for token expiry
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
