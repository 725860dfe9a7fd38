package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const minPasswordLen = 6

type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (s *Shop) Register(ctx context.Context, req RegisterRequest) (*Customer, error) {
	req.Email = strings.TrimSpace(req.Email)
	if strings.TrimSpace(req.FullName) == "" || req.Email == "" || req.Password == "" {
		return nil, invalidf("full_name, email and password are required")
	}
	if len(req.Password) < minPasswordLen {
		return nil, invalidf("password must be at least %d characters", minPasswordLen)
	}

	hash, err := HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	c := &Customer{
		FullName:     strings.TrimSpace(req.FullName),
		Email:        req.Email,
		Phone:        optional(strings.TrimSpace(req.Phone)),
		PasswordHash: hash,
		Role:         RoleCustomer,
	}
	if err := s.store.CreateCustomer(ctx, c); err != nil {
		if errors.Is(err, ErrEmailConflict) {
			return nil, invalidf("a customer with that email already exists")
		}
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}

// Login checks the credentials and returns the actor to put in a session
// token. Unknown email and wrong password are indistinguishable.
func (s *Shop) Login(ctx context.Context, email, password string) (Actor, error) {
	if email == "" || password == "" {
		return Actor{}, invalidf("email and password are required")
	}
	c, err := s.store.GetCustomerByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrNotFound) {
		return Actor{}, ErrInvalidCredentials
	}
	if err != nil {
		return Actor{}, fmt.Errorf("lookup customer: %w", err)
	}
	if !HashToPassword(c.PasswordHash, password) {
		return Actor{}, ErrInvalidCredentials
	}
	return Actor{CustomerID: c.ID, FullName: c.FullName, Email: c.Email, Role: c.Role}, nil
}

func (s *Shop) Profile(ctx context.Context, actor Actor) (*Customer, error) {
	c, err := s.store.GetCustomerByID(ctx, actor.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("customer %d: %w", actor.CustomerID, err)
	}
	return c, nil
}

type ProfileUpdate struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

func (s *Shop) UpdateProfile(ctx context.Context, actor Actor, u ProfileUpdate) error {
	if strings.TrimSpace(u.FullName) == "" || strings.TrimSpace(u.Email) == "" {
		return invalidf("full_name and email are required")
	}
	ok, err := s.store.UpdateCustomerProfile(ctx, actor.CustomerID,
		strings.TrimSpace(u.FullName), strings.TrimSpace(u.Email), optional(strings.TrimSpace(u.Phone)))
	if errors.Is(err, ErrEmailConflict) {
		return invalidf("a customer with that email already exists")
	}
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if !ok {
		return fmt.Errorf("customer %d: %w", actor.CustomerID, ErrNotFound)
	}
	return nil
}

type PasswordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Shop) ChangePassword(ctx context.Context, actor Actor, pc PasswordChange) error {
	if pc.CurrentPassword == "" || pc.NewPassword == "" {
		return invalidf("current_password and new_password are required")
	}
	if len(pc.NewPassword) < minPasswordLen {
		return invalidf("new password must be at least %d characters", minPasswordLen)
	}
	c, err := s.store.GetCustomerByID(ctx, actor.CustomerID)
	if err != nil {
		return fmt.Errorf("customer %d: %w", actor.CustomerID, err)
	}
	if !HashToPassword(c.PasswordHash, pc.CurrentPassword) {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(pc.NewPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	ok, err := s.store.UpdateCustomerPassword(ctx, actor.CustomerID, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if !ok {
		return fmt.Errorf("customer %d: %w", actor.CustomerID, ErrNotFound)
	}
	return nil
}

// DefaultAddress returns the address checkout would use, or nil.
func (s *Shop) DefaultAddress(ctx context.Context, actor Actor) (*Address, error) {
	addrs, err := s.store.ListAddresses(ctx, actor.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("addresses: %w", err)
	}
	if len(addrs) == 0 {
		return nil, nil
	}
	return &addrs[0], nil
}

// AddressInput is the address form. ID > 0 updates that address; Type
// defaults to shipping and Country to defaultCountry. A saved address
// always becomes the default.
type AddressInput struct {
	ID         int64  `json:"id"`
	Type       string `json:"type"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

const defaultCountry = "México"

func (s *Shop) SaveAddress(ctx context.Context, actor Actor, in AddressInput) (*Address, bool, error) {
	if in.ID < 0 {
		return nil, false, ErrInvalidID
	}
	if in.Street == "" || in.City == "" || in.State == "" || in.PostalCode == "" {
		return nil, false, invalidf("street, city, state and postal_code are required")
	}
	a := &Address{
		ID:         in.ID,
		CustomerID: actor.CustomerID,
		Type:       AddressShipping,
		Street:     in.Street,
		City:       in.City,
		State:      in.State,
		PostalCode: in.PostalCode,
		Country:    in.Country,
		IsDefault:  true,
	}
	if in.Type == AddressBilling {
		a.Type = AddressBilling
	}
	if a.Country == "" {
		a.Country = defaultCountry
	}

	created := a.ID == 0
	err := s.store.InTx(ctx, func(tx Storage) error {
		if err := tx.UnsetDefaultAddresses(ctx, actor.CustomerID); err != nil {
			return fmt.Errorf("unset default address: %w", err)
		}
		if created {
			if err := tx.CreateAddress(ctx, a); err != nil {
				return fmt.Errorf("create address: %w", err)
			}
			return nil
		}
		ok, err := tx.UpdateAddress(ctx, a)
		if err != nil {
			return fmt.Errorf("update address %d: %w", a.ID, err)
		}
		if !ok {
			return fmt.Errorf("address %d: %w", a.ID, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return a, created, nil
}
