// Spotify Web API response types, based on
// https://developer.spotify.com/documentation/web-api/reference/
package spotify

// Device represents a Spotify Connect playback device.
type Device struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"is_active"`
	IsRestricted  bool   `json:"is_restricted"`
	VolumePercent int    `json:"volume_percent"`
}

// Artist represents a Spotify artist.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Album represents a Spotify album.
type Album struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []Artist `json:"artists"`
	ReleaseDate string   `json:"release_date"`
	TotalTracks int      `json:"total_tracks"`
	Images      []Image  `json:"images"`
	URI         string   `json:"uri"`
}

// ArtistNames joins the album's artist names for display.
func (a *Album) ArtistNames() string {
	names := ""
	for i, artist := range a.Artists {
		if i > 0 {
			names += ", "
		}
		names += artist.Name
	}
	return names
}

type deviceList struct {
	Devices []Device `json:"devices"`
}

type albumSearchResponse struct {
	Albums struct {
		Items []Album `json:"items"`
	} `json:"albums"`
}

type transferRequest struct {
	DeviceIDs []string `json:"device_ids"`
	Play      bool     `json:"play"`
}

type playRequest struct {
	ContextURI string `json:"context_uri"`
}
