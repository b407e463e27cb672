package identity

import "github.com/gofiber/fiber/v2"

const localsUserKey = "identity.user"

// SetCurrent stores the authenticated user on the request.
func SetCurrent(c *fiber.Ctx, user User) {
	c.Locals(localsUserKey, user)
}

// Current returns the authenticated user stored on the request, if any.
func Current(c *fiber.Ctx) (User, bool) {
	user, ok := c.Locals(localsUserKey).(User)
	return user, ok
}
