package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/MeKo-Tech/redliningmap/internal/types"
)

type pinResponse struct {
	Result string    `json:"result"`
	Pin    types.Pin `json:"pin"`
}

type pinsResponse struct {
	Result string      `json:"result"`
	Pins   []types.Pin `json:"pins"`
}

type messageResponse struct {
	Result  string `json:"result"`
	Message string `json:"message"`
}

func (s *Server) handleAddPin(w http.ResponseWriter, r *http.Request) int {
	q := r.URL.Query()
	userID, pinID := q.Get("userId"), q.Get("pinId")
	lat, lng, ts := q.Get("latitude"), q.Get("longitude"), q.Get("timestamp")
	if userID == "" || pinID == "" || lat == "" || lng == "" || ts == "" {
		return s.writeError(w, http.StatusBadRequest, "Missing required parameters")
	}

	pin, err := parsePin(userID, pinID, lat, lng, ts)
	if err != nil {
		return s.writeError(w, http.StatusBadRequest, err.Error())
	}

	if err := s.store.AddPin(r.Context(), pin); err != nil {
		s.metrics.PinOpsTotal.WithLabelValues("add", "error").Inc()
		s.log().Error("failed to add pin", "pin_id", pin.ID, "user_id", pin.UserID, "error", err)
		return s.writeError(w, http.StatusInternalServerError, err.Error())
	}
	s.metrics.PinOpsTotal.WithLabelValues("add", "ok").Inc()

	return s.writeJSON(w, http.StatusOK, pinResponse{Result: "success", Pin: pin})
}

func parsePin(userID, pinID, lat, lng, ts string) (types.Pin, error) {
	latitude, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return types.Pin{}, fmt.Errorf("invalid latitude %q", lat)
	}
	longitude, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return types.Pin{}, fmt.Errorf("invalid longitude %q", lng)
	}
	timestamp, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return types.Pin{}, fmt.Errorf("invalid timestamp %q", ts)
	}

	return types.Pin{
		ID:        pinID,
		Latitude:  latitude,
		Longitude: longitude,
		UserID:    userID,
		Timestamp: timestamp,
	}, nil
}

func (s *Server) handleAllPins(w http.ResponseWriter, r *http.Request) int {
	pins, err := s.store.AllPins(r.Context())
	if err != nil {
		s.metrics.PinOpsTotal.WithLabelValues("list", "error").Inc()
		s.log().Error("failed to list pins", "error", err)
		return s.writeError(w, http.StatusInternalServerError, err.Error())
	}
	s.metrics.PinOpsTotal.WithLabelValues("list", "ok").Inc()

	if pins == nil {
		pins = []types.Pin{}
	}
	return s.writeJSON(w, http.StatusOK, pinsResponse{Result: "success", Pins: pins})
}

func (s *Server) handleDropPins(w http.ResponseWriter, r *http.Request) int {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		return s.writeError(w, http.StatusBadRequest, "Missing required userId parameter")
	}

	if err := s.store.ClearUser(r.Context(), userID); err != nil {
		s.metrics.PinOpsTotal.WithLabelValues("clear", "error").Inc()
		s.log().Error("failed to clear pins", "user_id", userID, "error", err)
		return s.writeError(w, http.StatusInternalServerError, err.Error())
	}
	s.metrics.PinOpsTotal.WithLabelValues("clear", "ok").Inc()

	return s.writeJSON(w, http.StatusOK, messageResponse{
		Result:  "success",
		Message: fmt.Sprintf("All pins for user %s have been cleared", userID),
	})
}
