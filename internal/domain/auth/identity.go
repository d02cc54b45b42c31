package auth

import "context"

type Role string

const (
	RoleCustomer  Role = "customer"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

type Permission string

const (
	PermCatalogRead  Permission = "catalog:read"
	PermCatalogWrite Permission = "catalog:write"
	PermOrderRead    Permission = "order:read"
	PermOrderWrite   Permission = "order:write"
	PermOrderAdmin   Permission = "order:admin"
	PermPaymentRead  Permission = "payment:read"
	PermPaymentWrite Permission = "payment:write"
	PermPaymentAdmin Permission = "payment:admin"
	PermCart         Permission = "cart:use"
)

var rolePermissions = map[Role][]Permission{
	RoleCustomer: {
		PermCatalogRead, PermOrderRead, PermOrderWrite,
		PermPaymentRead, PermPaymentWrite, PermCart,
	},
	RoleModerator: {
		PermCatalogRead, PermCatalogWrite, PermOrderRead,
	},
	RoleAdmin: {
		PermCatalogRead, PermCatalogWrite, PermOrderRead, PermOrderWrite, PermOrderAdmin,
		PermPaymentRead, PermPaymentWrite, PermPaymentAdmin, PermCart,
	},
}

// Identity is the verified caller handed to the core by the auth boundary.
type Identity struct {
	UserID string
	Email  string
	Role   Role
	Extra  []Permission
}

func (i *Identity) Can(p Permission) bool {
	if i == nil {
		return false
	}
	for _, have := range rolePermissions[i.Role] {
		if have == p {
			return true
		}
	}
	for _, have := range i.Extra {
		if have == p {
			return true
		}
	}
	return false
}

func (i *Identity) IsAdmin() bool { return i.Can(PermOrderAdmin) }

type identityKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	if id == nil {
		return ctx
	}
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the caller identity, or nil for anonymous requests.
func FromContext(ctx context.Context) *Identity {
	if ctx == nil {
		return nil
	}
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}
