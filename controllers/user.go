package controllers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"go-storefront/middleware"
	"go-storefront/models"
	"go-storefront/services"
	"go-storefront/store"

	"github.com/gorilla/mux"
)

// UserController handles authentication, the signed-in profile and the admin customer list
type UserController struct {
	Identity   *services.Identity
	Users      store.Collection[models.User]
	Carts      *services.Carts
	SiteConfig *services.SiteConfig
}

func NewUserController(identity *services.Identity, users store.Collection[models.User], carts *services.Carts, siteConfig *services.SiteConfig) *UserController {
	return &UserController{
		Identity:   identity,
		Users:      users,
		Carts:      carts,
		SiteConfig: siteConfig,
	}
}

type credentials struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	DisplayName     string `json:"display_name"`
}

// Register handles user sign-up
func (uc *UserController) Register(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decode(r, &creds); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if creds.Email == "" || creds.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}
	if creds.ConfirmPassword != "" && creds.ConfirmPassword != creds.Password {
		http.Error(w, "Passwords do not match", http.StatusBadRequest)
		return
	}

	signedIn, err := uc.Identity.Signup(r.Context(), creds.Email, creds.Password, creds.DisplayName)
	if err != nil {
		writeError(w, err, "Signup failed")
		return
	}
	writeJSON(w, http.StatusCreated, signedIn)
}

// Login handles user authentication
func (uc *UserController) Login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decode(r, &creds); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}

	signedIn, err := uc.Identity.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		writeError(w, err, "Invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session":    signedIn.Session,
		"profile":    signedIn.Profile,
		"last_route": uc.SiteConfig.LastRoute(signedIn.Profile),
	})
}

// Logout ends the session and drops its cart
func (uc *UserController) Logout(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r)
	if err := uc.Identity.Logout(r.Context(), middleware.Token(r)); err != nil {
		writeError(w, err, "Not signed in")
		return
	}
	uc.Carts.Clear(user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// GetProfile returns the signed-in profile
func (uc *UserController) GetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.CurrentUser(r))
}

func (uc *UserController) GetLastRoute(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"route": uc.SiteConfig.LastRoute(middleware.CurrentUser(r))})
}

func (uc *UserController) SetLastRoute(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Route string `json:"route"`
	}
	if err := decode(r, &body); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if err := uc.SiteConfig.SetLastRoute(middleware.CurrentUser(r), body.Route); err != nil {
		writeError(w, err, "Failed to save route")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCustomers returns every profile, newest first, optionally filtered by ?search= (Admin only)
func (uc *UserController) ListCustomers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	users, err := uc.Users.All(ctx)
	if err != nil {
		http.Error(w, "Error fetching customers", http.StatusServiceUnavailable)
		return
	}

	search := strings.ToLower(r.URL.Query().Get("search"))
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if search != "" && !strings.Contains(strings.ToLower(u.Email), search) &&
			!strings.Contains(strings.ToLower(u.DisplayName), search) {
			continue
		}
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	writeJSON(w, http.StatusOK, out)
}

// GetCustomer returns one profile (Admin only)
func (uc *UserController) GetCustomer(w http.ResponseWriter, r *http.Request) {
	user, err := uc.Users.Get(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Customer not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Error fetching customer", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
