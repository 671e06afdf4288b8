package shortener

import "context"

// Repository is the persistent store for mappings and their click events.
//
// Code uniqueness is enforced by the implementation: Save returns
// ErrDuplicateCode when the code is already assigned.
type Repository interface {
	FindByShortCode(ctx context.Context, code Code) (*Mapping, error)
	FindByOriginalURL(ctx context.Context, url string) (*Mapping, error)
	ExistsByShortCode(ctx context.Context, code Code) (bool, error)
	Save(ctx context.Context, mapping *Mapping) error
	InsertClick(ctx context.Context, click *ClickEvent) error
	CountClicks(ctx context.Context, mappingID int64) (int64, error)
	// ListMappings returns at most limit mappings, newest first.
	ListMappings(ctx context.Context, limit int) ([]MappingSummary, error)
	// RecentClicks returns at most limit clicks of a mapping, newest first.
	RecentClicks(ctx context.Context, mappingID int64, limit int) ([]ClickEvent, error)
}
