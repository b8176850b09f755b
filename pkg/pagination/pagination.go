package pagination

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultSize = 10
	MaxSize     = 100
	// MaxPage keeps (page-1)*size within 32 bits for every allowed size.
	MaxPage = math.MaxInt32 / MaxSize
)

// Params holds a normalized page request. Page is 1-based.
type Params struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// New normalizes a page request. A non-positive page becomes the first page
// and a non-positive size becomes DefaultSize. Sizes above MaxSize and pages
// above MaxPage are capped.
func New(page, size int) Params {
	if page <= 0 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return Params{Page: page, Size: size}
}

// FromContext extracts pagination parameters from the "page" and "size"
// query parameters. Unparseable values fall back to the defaults.
func FromContext(c echo.Context) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	return New(page, size)
}

// Limit returns the number of rows a page holds.
func (p Params) Limit() int {
	return p.Size
}

// Offset returns the number of rows skipped before the page.
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Size
}

// Meta describes where a page sits in the full result.
type Meta struct {
	TotalCount int64 `json:"total_count"`
	TotalPages int   `json:"total_pages"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	First      bool  `json:"first"`
	Last       bool  `json:"last"`
}

func NewMeta(p Params, total int64) Meta {
	pages := 0
	if p.Size > 0 && total > 0 {
		pages = int((total + int64(p.Size) - 1) / int64(p.Size))
	}
	return Meta{
		TotalCount: total,
		TotalPages: pages,
		Page:       p.Page,
		PageSize:   p.Size,
		First:      p.Page <= 1,
		Last:       p.Page >= pages,
	}
}

// Response wraps a paginated API response.
type Response struct {
	Data interface{} `json:"data"`
	Page Meta        `json:"page"`
}

func NewResponse(data interface{}, p Params, total int64) *Response {
	return &Response{Data: data, Page: NewMeta(p, total)}
}
