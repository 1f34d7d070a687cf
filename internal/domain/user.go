package domain

import "time"

// User representa la unica entidad persistida del servicio: una credencial
// con su sesion activa y su token de reset opcionales.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	SessionID      *string   `json:"-"`
	ResetToken     *string   `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}
