package api

// RestoreRequest is the body of POST /api/v1/restore.
type RestoreRequest struct {
	RecordID int64  `json:"record_id" validate:"required,gt=0"`
	DestPath string `json:"dest_path" validate:"required,min=1,max=4096"`
}

// SearchQuery is the parsed and validated form of GET /api/v1/search.
type SearchQuery struct {
	Query string `validate:"required,min=1,max=256"`
	Limit int    `validate:"omitempty,gte=1,lte=500"`
}

// VersionsQuery is the parsed and validated form of GET /api/v1/versions.
type VersionsQuery struct {
	FilePath string `validate:"required,min=1,max=4096"`
}
