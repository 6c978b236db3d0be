package mapper

// Wire payloads shared by the HTTP repositories and the stub backend.

type ReportDTO struct {
	ID         string         `json:"id"`
	DiscipleID string         `json:"disciple_id"`
	Date       string         `json:"date" format:"date"`
	Status     string         `json:"status" enum:"draft,submitted,validated"`
	Reviewed   bool           `json:"reviewed"`
	Comment    string         `json:"comment,omitempty"`
	Activities map[string]any `json:"activities,omitempty"`
	CreatedAt  string         `json:"created_at" format:"date-time"`
	UpdatedAt  string         `json:"updated_at" format:"date-time"`
}

type ReportWriteDTO struct {
	Date       string         `json:"date,omitempty" format:"date"`
	Activities map[string]any `json:"activities,omitempty"`
}

type CommentDTO struct {
	Comment string `json:"comment"`
}

type SubjectDTO struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Role         string  `json:"role" enum:"fidele,fd,leader,pasteur,admin"`
	SupervisorID *string `json:"supervisor_id,omitempty"`
	RegionID     *string `json:"region_id,omitempty"`
	ZoneID       *string `json:"zone_id,omitempty"`
	LocalUnitID  *string `json:"local_unit_id,omitempty"`
	SubUnitID    *string `json:"sub_unit_id,omitempty"`
}

type SubjectWriteDTO struct {
	Name         string  `json:"name,omitempty"`
	Role         string  `json:"role,omitempty"`
	SupervisorID *string `json:"supervisor_id,omitempty"`
	RegionID     *string `json:"region_id,omitempty"`
	ZoneID       *string `json:"zone_id,omitempty"`
	LocalUnitID  *string `json:"local_unit_id,omitempty"`
	SubUnitID    *string `json:"sub_unit_id,omitempty"`
}

type OrgUnitDTO struct {
	ID         string  `json:"id"`
	Level      string  `json:"level" enum:"region,zone,local,sub"`
	Name       string  `json:"name"`
	ParentID   *string `json:"parent_id,omitempty"`
	ChildCount int     `json:"child_count"`
}

type OrgUnitWriteDTO struct {
	Level    string `json:"level,omitempty"`
	Name     string `json:"name,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
}

type AccountDTO struct {
	ID        string `json:"id"`
	SubjectID string `json:"disciple_id"`
	Email     string `json:"email"`
	Role      string `json:"role" enum:"fidele,fd,leader,pasteur,admin"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type AccountWriteDTO struct {
	SubjectID string `json:"disciple_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	Active    *bool  `json:"active,omitempty"`
}
