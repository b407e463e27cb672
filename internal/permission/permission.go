// Package permission holds the role predicates gating endpoints. Predicates see only
// authenticated, active users; anonymous requests are rejected before they run.
package permission

import "github.com/nikonekti/nikonekti_backend/internal/identity"

// Predicate decides whether a user may use an endpoint.
type Predicate func(user identity.User) bool

// IsAuthenticated admits any resolved user.
func IsAuthenticated(identity.User) bool { return true }

// IsTenant admits users registered with the TENANT role.
func IsTenant(u identity.User) bool { return u.Role == identity.RoleTenant }

// IsLandlord admits users registered with the LANDLORD role.
func IsLandlord(u identity.User) bool { return u.Role == identity.RoleLandlord }

// IsAgent admits users registered with the AGENT role.
func IsAgent(u identity.User) bool { return u.Role == identity.RoleAgent }

// IsAdmin admits staff accounts regardless of role.
func IsAdmin(u identity.User) bool { return u.IsStaff }

// All is the logical AND of preds. An empty list admits everyone.
func All(preds ...Predicate) Predicate {
	return func(u identity.User) bool {
		for _, p := range preds {
			if !p(u) {
				return false
			}
		}
		return true
	}
}
