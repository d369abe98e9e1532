package integration

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrStoreNotFound indicates the requested store does not exist
	ErrStoreNotFound = errors.New("integration: store not found")
	// ErrStoreInactive indicates the store exists but is disabled
	ErrStoreInactive = errors.New("integration: store is not active")
	// ErrStoreMissingPlatform indicates the store has no associated platform
	ErrStoreMissingPlatform = errors.New("integration: store has no associated platform")
	// ErrPlatformNotSupported indicates no adapter is registered for the platform
	ErrPlatformNotSupported = errors.New("integration: platform not supported")
	// ErrSessionClosed indicates a sync call after the owning session was released
	ErrSessionClosed = errors.New("integration: session is closed")
)

// Platform identifies a commerce platform backend (PrestaShop, ...).
type Platform struct {
	IDPlatform int64  `gorm:"column:id_platform;primaryKey;autoIncrement" json:"id_platform"`
	Name       string `gorm:"column:name;size:100;not null;uniqueIndex" json:"name"`
}

// TableName returns the table name for Platform
func (Platform) TableName() string { return "platforms" }

// Store is a configured remote shop tied to one platform.
type Store struct {
	IDStore     int64     `gorm:"column:id_store;primaryKey;autoIncrement" json:"id_store"`
	IDPlatform  int64     `gorm:"column:id_platform;not null;index" json:"id_platform"`
	Name        string    `gorm:"column:name;size:200;not null" json:"name"`
	BaseURL     string    `gorm:"column:base_url;size:500;not null" json:"base_url"`
	APIKey      string    `gorm:"column:api_key;size:500;not null" json:"-"`
	VATNumber   string    `gorm:"column:vat_number;size:50" json:"vat_number"`
	CountryCode string    `gorm:"column:country_code;size:5" json:"country_code"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	IsDefault   bool      `gorm:"column:is_default;not null;default:false" json:"is_default"`
	DateAdd     time.Time `gorm:"column:date_add;autoCreateTime" json:"date_add"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Platform *Platform `gorm:"foreignKey:IDPlatform;references:IDPlatform" json:"platform,omitempty"`
}

// TableName returns the table name for Store
func (Store) TableName() string { return "stores" }

// StoreConfig is the immutable per-session snapshot of a store's remote
// connection data. It is built once when a sync session opens and never
// reloaded; all session components read from it.
type StoreConfig struct {
	StoreID      int64
	PlatformID   int64
	PlatformName string
	BaseURL      string
	APIKey       string
	VATNumber    string
	CountryCode  string
}

// NewStoreConfig snapshots a store. The store must exist and be active;
// callers get a domain error otherwise, before any network activity.
func NewStoreConfig(store *Store) (StoreConfig, error) {
	if store == nil {
		return StoreConfig{}, ErrStoreNotFound
	}
	if !store.IsActive {
		return StoreConfig{}, ErrStoreInactive
	}
	if store.Platform == nil || store.Platform.Name == "" {
		return StoreConfig{}, ErrStoreMissingPlatform
	}
	return StoreConfig{
		StoreID:      store.IDStore,
		PlatformID:   store.IDPlatform,
		PlatformName: strings.ToLower(store.Platform.Name),
		BaseURL:      strings.TrimRight(store.BaseURL, "/"),
		APIKey:       store.APIKey,
		VATNumber:    store.VATNumber,
		CountryCode:  store.CountryCode,
	}, nil
}

// StoreRepository loads store configuration for sync sessions.
type StoreRepository interface {
	// FindByID returns the store with its platform preloaded, or
	// ErrStoreNotFound.
	FindByID(ctx context.Context, storeID int64) (*Store, error)

	// FindActive returns all active stores, used by background state sync.
	FindActive(ctx context.Context) ([]Store, error)
}
