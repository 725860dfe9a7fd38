package main

import (
	"net/http"
)

func (s *APIServer) handleCreateProduct(w http.ResponseWriter, r *http.Request, actor Actor) error {
	var req ProductInput
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	p, err := s.shop.CreateProduct(r.Context(), req)
	if err != nil {
		return err
	}
	logf(r, "admin %d created product %d (%s)", actor.CustomerID, p.ID, p.Slug)
	return WriteJSON(w, http.StatusCreated, createdResponse{Message: "product created", ID: p.ID})
}

func (s *APIServer) handleUpdateProduct(w http.ResponseWriter, r *http.Request, actor Actor) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	var req ProductInput
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	p, err := s.shop.UpdateProduct(r.Context(), id, req)
	if err != nil {
		return err
	}
	logf(r, "admin %d updated product %d", actor.CustomerID, id)
	return WriteJSON(w, http.StatusOK, p)
}

func (s *APIServer) handleDeleteProduct(w http.ResponseWriter, r *http.Request, actor Actor) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	archived, err := s.shop.DeleteProduct(r.Context(), id)
	if err != nil {
		return err
	}
	if archived {
		logf(r, "admin %d archived ordered product %d", actor.CustomerID, id)
		return WriteJSON(w, http.StatusOK, message{Message: "product has orders, set to inactive"})
	}
	logf(r, "admin %d deleted product %d", actor.CustomerID, id)
	return WriteJSON(w, http.StatusOK, message{Message: "product deleted"})
}
