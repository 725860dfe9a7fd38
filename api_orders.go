package main

import (
	"net/http"
)

type shipmentResponse struct {
	Message    string `json:"message"`
	ShipmentID int64  `json:"shipment_id"`
	Status     string `json:"status"`
}

func (s *APIServer) handleMyOrders(w http.ResponseWriter, r *http.Request, actor Actor) error {
	orders, err := s.shop.MyOrders(r.Context(), actor)
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, orders)
}

func (s *APIServer) handleMyOrder(w http.ResponseWriter, r *http.Request, actor Actor) error {
	orderID, err := pathID(r, "id")
	if err != nil {
		return err
	}
	detail, err := s.shop.MyOrder(r.Context(), actor, orderID)
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, detail)
}

func (s *APIServer) handleCancelOrder(w http.ResponseWriter, r *http.Request, actor Actor) error {
	orderID, err := pathID(r, "id")
	if err != nil {
		return err
	}
	if err := s.shop.CancelOrder(r.Context(), actor, orderID); err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, message{Message: "order cancelled"})
}

func (s *APIServer) handleAdminOrders(w http.ResponseWriter, r *http.Request, _ Actor) error {
	orders, err := s.shop.AllOrders(r.Context())
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, orders)
}

func (s *APIServer) handleAdminOrder(w http.ResponseWriter, r *http.Request, _ Actor) error {
	orderID, err := pathID(r, "id")
	if err != nil {
		return err
	}
	detail, err := s.shop.AdminOrder(r.Context(), orderID)
	if err != nil {
		return err
	}
	return WriteJSON(w, http.StatusOK, detail)
}

func (s *APIServer) handleUpsertShipment(w http.ResponseWriter, r *http.Request, actor Actor) error {
	orderID, err := pathID(r, "id")
	if err != nil {
		return err
	}
	var req ShipmentUpdate
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	sh, created, err := s.shop.UpsertShipment(r.Context(), orderID, req)
	if err != nil {
		return err
	}
	logf(r, "admin %d set shipment of order %d to %s", actor.CustomerID, orderID, sh.Status)
	if created {
		return WriteJSON(w, http.StatusCreated, shipmentResponse{Message: "shipment created", ShipmentID: sh.ID, Status: sh.Status})
	}
	return WriteJSON(w, http.StatusOK, shipmentResponse{Message: "shipment updated", ShipmentID: sh.ID, Status: sh.Status})
}
