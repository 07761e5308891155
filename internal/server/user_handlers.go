package server

import (
	"github.com/gofiber/fiber/v2"
)

// SearchUsers handles GET /api/users/search?q= for member pickers. A blank query
// returns an empty list.
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	users, err := s.users.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(users)
}

// GetAllUsers handles GET /api/users?limit=&offset=
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	win := pageFrom(c, 50)
	users, err := s.users.ListUsers(c.UserContext(), win.Limit, win.Offset)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(users)
}

// GetUser handles GET /api/users/:id
func (s *Server) GetUser(c *fiber.Ctx) error {
	id, err := routeID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	user, err := s.users.GetUserByID(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(user)
}

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(user)
}

// GlobalSearch handles GET /api/search?q= across the caller's boards.
func (s *Server) GlobalSearch(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	results, err := s.search.Global(c.UserContext(), user, c.Query("q"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"results": results})
}
