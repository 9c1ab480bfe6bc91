package dto

import "time"

// PageQuery holds page and size query parameters
type PageQuery struct {
	Page int `form:"page"`
	Size int `form:"size"`
}

// AuditListQuery holds the filters of GET /audits
type AuditListQuery struct {
	Entity    string `form:"entity"`
	Operation string `form:"operation"`
	Result    string `form:"result"`
	Page      int    `form:"page"`
	Size      int    `form:"size"`
}

// AuditRangeQuery holds the filters of GET /audits/range
type AuditRangeQuery struct {
	Start time.Time `form:"start" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	End   time.Time `form:"end" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	Page  int       `form:"page"`
	Size  int       `form:"size"`
}
