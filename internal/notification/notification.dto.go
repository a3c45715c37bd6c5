package notification

type RegisterDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func (r RegisterDeviceRequest) Valid() bool {
	if r.Token == "" {
		return false
	}
	switch r.Platform {
	case "ios", "android", "web":
		return true
	}
	return false
}
