package profile

import (
	"encoding/json"

	"github.com/ahrav/handyhire/internal/domain/dispatch"
)

// updateRequest edits the account. Omitted fields are left unchanged.
type updateRequest struct {
	Username   *string `json:"username" validate:"omitnil,min=1"`
	Profession *string `json:"profession" validate:"omitnil,min=1"`
	IsVerified *bool   `json:"is_verified"`
}

func (r updateRequest) toEdit() dispatch.ProfileEdit {
	return dispatch.ProfileEdit{
		Username:   r.Username,
		Profession: r.Profession,
		IsVerified: r.IsVerified,
	}
}

// profileResponse is the account view.
type profileResponse struct {
	ID         string `json:"id"`
	Role       string `json:"role"`
	Username   string `json:"username"`
	Profession string `json:"profession,omitempty"`
	Location   string `json:"location,omitempty"`
	Number     string `json:"number,omitempty"`
	IsVerified bool   `json:"is_verified"`
	Status     string `json:"status,omitempty"`
	Version    int64  `json:"version"`
}

// Encode implements the web.Encoder interface.
func (pr profileResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(pr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

func toProfileResponse(r dispatch.WorkerRecord) profileResponse {
	return profileResponse{
		ID:         r.ID.String(),
		Role:       string(r.Role),
		Username:   r.Username,
		Profession: r.Profession,
		Location:   r.Location,
		Number:     r.Number,
		IsVerified: r.IsVerified,
		Status:     r.Status,
		Version:    r.Version,
	}
}
