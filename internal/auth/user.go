package auth

// User is the persisted user record. Sessions never carry it; every request
// re-reads it from the store so level changes apply immediately.
type User struct {
	Username  string `json:"username"`
	Provider  string `json:"provider"`
	Name      string `json:"name,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	AuthLevel Level  `json:"auth,omitempty"`
}

// Key returns the identity key of the record.
func (u *User) Key() string {
	return EncodeKey(u.Username, u.Provider)
}

// Backfill copies name and image from a provider profile into fields that
// are still empty. Populated fields and the auth level are left alone.
func (u *User) Backfill(name, imageURL string) (changed bool) {
	if u.Name == "" && name != "" {
		u.Name = name
		changed = true
	}
	if u.ImageURL == "" && imageURL != "" {
		u.ImageURL = imageURL
		changed = true
	}
	return changed
}
