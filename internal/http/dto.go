package http

// DTOs del surface de autenticación.

type signUpRequest struct {
	PlatformID string `json:"platformId"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
}

type signInRequest struct {
	PlatformID string `json:"platformId"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt int64        `json:"expiresAt"`
	User      userResponse `json:"user"`
}

type userResponse struct {
	ID         string `json:"id"`
	PlatformID string `json:"platformId,omitempty"`
	Email      string `json:"email"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	AvatarURL  string `json:"avatarUrl,omitempty"`
	Verified   bool   `json:"verified"`
}

type loginURLResponse struct {
	LoginURL string `json:"loginUrl"`
}

type externalPrincipalResponse struct {
	PlatformID        string   `json:"platformId"`
	ExternalUserID    string   `json:"externalUserId"`
	ExternalProjectID string   `json:"externalProjectId"`
	Email             string   `json:"email,omitempty"`
	FirstName         string   `json:"firstName,omitempty"`
	LastName          string   `json:"lastName,omitempty"`
	Role              string   `json:"role"`
	PieceFilterType   string   `json:"pieceFilterType"`
	PieceTags         []string `json:"pieceTags,omitempty"`
}
