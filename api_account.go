package main

import (
	"net/http"
	"strconv"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    Actor  `json:"user"`
}

type meResponse struct {
	LoggedIn bool   `json:"logged_in"`
	User     *Actor `json:"user"`
}

type createdResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

func (s *APIServer) handleRegister(w http.ResponseWriter, r *http.Request) error {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	c, err := s.shop.Register(r.Context(), req)
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusCreated, createdResponse{Message: "customer registered", ID: c.ID})
}

func (s *APIServer) handleLogin(w http.ResponseWriter, r *http.Request) error {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	actor, err := s.shop.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	token, err := s.tokens.generateJWT(actor)
	if err != nil {
		return err
	}
	w.Header().Set("X-Authorization", token)
	return WriteJSON(w, http.StatusOK, loginResponse{Message: "logged in", Token: token, User: actor})
}

// handleLogout has nothing to revoke; the client drops its token.
func (s *APIServer) handleLogout(w http.ResponseWriter, r *http.Request) error {
	return WriteJSON(w, http.StatusOK, message{Message: "logged out"})
}

func (s *APIServer) handleMe(w http.ResponseWriter, r *http.Request) error {
	tokenString := tokenFromHeader(r.Header.Get("Authorization"), r.Header.Get("X-Authorization"))
	actor, err := s.tokens.ParseJWT(tokenString)
	if tokenString == "" || err != nil {
		return WriteJSON(w, http.StatusOK, meResponse{})
	}
	return WriteJSON(w, http.StatusOK, meResponse{LoggedIn: true, User: &actor})
}

func (s *APIServer) handleGetProfile(w http.ResponseWriter, r *http.Request, actor Actor) error {
	c, err := s.shop.Profile(r.Context(), actor)
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, c)
}

func (s *APIServer) handleUpdateProfile(w http.ResponseWriter, r *http.Request, actor Actor) error {
	var req ProfileUpdate
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := s.shop.UpdateProfile(r.Context(), actor, req); err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, message{Message: "profile updated"})
}

func (s *APIServer) handleChangePassword(w http.ResponseWriter, r *http.Request, actor Actor) error {
	var req PasswordChange
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := s.shop.ChangePassword(r.Context(), actor, req); err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, message{Message: "password updated"})
}

func (s *APIServer) handleGetAddress(w http.ResponseWriter, r *http.Request, actor Actor) error {
	addr, err := s.shop.DefaultAddress(r.Context(), actor)
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, addr)
}

func (s *APIServer) handleSaveAddress(w http.ResponseWriter, r *http.Request, actor Actor) error {
	var req AddressInput
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	addr, created, err := s.shop.SaveAddress(r.Context(), actor, req)
	if err != nil {
		return err
	}
	if created {
		return WriteJSON(w, http.StatusCreated, createdResponse{Message: "address created", ID: addr.ID})
	}
	return WriteJSON(w, http.StatusOK, message{Message: "address updated"})
}

func (s *APIServer) handleProducts(w http.ResponseWriter, r *http.Request) error {
	f := ProductFilter{Query: r.URL.Query().Get("q")}
	if c := r.URL.Query().Get("category_id"); c != "" {
		id, err := strconv.ParseInt(c, 10, 64)
		if err != nil || id <= 0 {
			return invalidf("invalid category_id")
		}
		f.CategoryID = id
	}
	products, err := s.shop.Products(r.Context(), f)
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, products)
}

func (s *APIServer) handleProductByID(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	product, err := s.shop.Product(r.Context(), id)
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, product)
}

func (s *APIServer) handleCategories(w http.ResponseWriter, r *http.Request) error {
	categories, err := s.shop.Categories(r.Context())
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, categories)
}

func (s *APIServer) handleProducers(w http.ResponseWriter, r *http.Request) error {
	producers, err := s.shop.Producers(r.Context())
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, producers)
}
