package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"projectboard/internal/access"
	"projectboard/internal/models"
)

// OwnerResolver checks that an owner of one type exists.
type OwnerResolver func(ctx context.Context, id uint) error

// OwnerRegistry maps owner type tags to resolvers. Only registered types may own boards.
type OwnerRegistry struct {
	mu        sync.RWMutex
	resolvers map[string]OwnerResolver
}

// NewOwnerRegistry creates an empty registry.
func NewOwnerRegistry() *OwnerRegistry {
	return &OwnerRegistry{resolvers: map[string]OwnerResolver{}}
}

// Register adds or replaces the resolver for typ.
func (r *OwnerRegistry) Register(typ string, resolve OwnerResolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[typ] = resolve
}

// Types lists the registered type tags.
func (r *OwnerRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.resolvers))
	for typ := range r.resolvers {
		out = append(out, typ)
	}
	sort.Strings(out)
	return out
}

// Parse builds an owner reference from raw query values. Both empty means no owner.
func (r *OwnerRegistry) Parse(ctx context.Context, typ, rawID string) (*models.OwnerRef, error) {
	typ, rawID = strings.TrimSpace(typ), strings.TrimSpace(rawID)
	if typ == "" && rawID == "" {
		return nil, nil
	}
	if typ == "" || rawID == "" {
		return nil, models.NewValidationError("boardable_type and boardable_id must be given together")
	}
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		return nil, models.NewValidationError("boardable_id must be a positive integer")
	}
	ref := &models.OwnerRef{Type: typ, ID: uint(id)}
	if err := r.Resolve(ctx, ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// Resolve checks that ref names a registered type and an existing owner.
func (r *OwnerRegistry) Resolve(ctx context.Context, ref *models.OwnerRef) error {
	if ref == nil {
		return nil
	}
	r.mu.RLock()
	resolve, ok := r.resolvers[ref.Type]
	r.mu.RUnlock()
	if !ok {
		return models.NewValidationError("Unknown owner type: " + ref.Type)
	}
	return resolve(ctx, ref.ID)
}

// UserOwner resolves owners of type "user" through the user directory.
func UserOwner(dir access.UserDirectory) OwnerResolver {
	return func(ctx context.Context, id uint) error {
		_, err := dir.FindByID(ctx, id)
		return err
	}
}
