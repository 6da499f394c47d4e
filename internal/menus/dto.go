package menus

import "time"

// MenuEntry is one week in the public menu listing.
type MenuEntry struct {
	Week      int        `json:"week"`
	FileName  *string    `json:"fileName"`
	FilePath  string     `json:"filePath"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// MenuListResponse is the body of GET /api/menu.
type MenuListResponse struct {
	Success bool        `json:"success"`
	Data    []MenuEntry `json:"data"`
}

// UploadResponse is the body of a successful upload.
type UploadResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	FilePath string `json:"filePath,omitempty"`
}

func toEntry(r Resolved) MenuEntry {
	entry := MenuEntry{Week: r.Week, FilePath: r.URL}
	if r.FileName != "" {
		name := r.FileName
		entry.FileName = &name
	}
	if !r.UpdatedAt.IsZero() {
		t := r.UpdatedAt
		entry.UpdatedAt = &t
	}
	return entry
}
