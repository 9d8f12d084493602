package form

import (
	"fmt"

	"lmsadmin/internal/listing"
	"lmsadmin/internal/model"
)

// CourseDraft holds the course form. Scalars are kept as entered; Payload
// coerces them.
type CourseDraft struct {
	Title         string               `json:"title" validate:"required"`
	Category      string               `json:"category" validate:"required"`
	Description   string               `json:"description"`
	Level         string               `json:"level"`
	Duration      string               `json:"duration" validate:"omitempty,numeric"`
	Lessons       string               `json:"lessons" validate:"omitempty,number"`
	Price         string               `json:"price" validate:"omitempty,numeric"`
	OriginalPrice string               `json:"original_price" validate:"omitempty,numeric"`
	Currency      string               `json:"currency" validate:"omitempty,max=8"`
	ThumbnailURL  string               `json:"thumbnail_url" validate:"omitempty,url"`
	PreviewLink   string               `json:"preview_link" validate:"omitempty,url"`
	Status        string               `json:"status"`
	Tags          []string             `json:"tags"`
	Requirements  []string             `json:"requirements"`
	Features      model.CourseFeatures `json:"features"`
}

func NewCourseDraft() Draft {
	return &CourseDraft{}
}

func (d *CourseDraft) Set(name string, value any) error {
	switch name {
	case "title":
		d.Title = text(value)
	case "category":
		d.Category = text(value)
	case "description":
		d.Description = listing.Text(value)
	case "level":
		d.Level = text(value)
	case "duration":
		d.Duration = text(value)
	case "lessons":
		d.Lessons = text(value)
	case "price":
		d.Price = text(value)
	case "original_price":
		d.OriginalPrice = text(value)
	case "currency":
		d.Currency = text(value)
	case "thumbnail_url":
		d.ThumbnailURL = text(value)
	case "preview_link":
		d.PreviewLink = text(value)
	case "status":
		d.Status = text(value)
	case "tags":
		d.Tags = list(value)
	case "requirements":
		d.Requirements = list(value)
	case "features":
		m, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: features must be an object", ErrUnknownField)
		}
		for k, v := range m {
			if err := d.setFeature(k, v); err != nil {
				return err
			}
		}
	default:
		return d.setFeature(name, value)
	}
	return nil
}

func (d *CourseDraft) setFeature(name string, value any) error {
	f := &d.Features
	switch name {
	case "downloadable_content":
		f.DownloadableContent = flag(value)
	case "mobile_access":
		f.MobileAccess = flag(value)
	case "quizzes":
		f.Quizzes = flag(value)
	case "certificate":
		f.Certificate = flag(value)
	case "assignments":
		f.Assignments = flag(value)
	case "lifetime_access":
		f.LifetimeAccess = flag(value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// Validate checks required fields (title, then category) before formats.
func (d *CourseDraft) Validate() error {
	if err := requireAll(
		namedValue{"title", d.Title},
		namedValue{"category", d.Category},
	); err != nil {
		return err
	}
	return checkFormats(d)
}

func (d *CourseDraft) Payload() map[string]any {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	reqs := d.Requirements
	if reqs == nil {
		reqs = []string{}
	}
	p := map[string]any{
		"title":          d.Title,
		"category":       d.Category,
		"description":    d.Description,
		"level":          d.Level,
		"duration":       listing.Number(d.Duration),
		"lessons":        int(listing.Number(d.Lessons)),
		"price":          listing.Number(d.Price),
		"original_price": listing.Number(d.OriginalPrice),
		"currency":       d.Currency,
		"thumbnail_url":  d.ThumbnailURL,
		"preview_link":   d.PreviewLink,
		"tags":           tags,
		"requirements":   reqs,
		"features":       featureMap(d.Features),
	}
	if d.Status != "" {
		p["status"] = d.Status
	}
	return p
}

func (d *CourseDraft) Values() map[string]any {
	return map[string]any{
		"title":          d.Title,
		"category":       d.Category,
		"description":    d.Description,
		"level":          d.Level,
		"duration":       d.Duration,
		"lessons":        d.Lessons,
		"price":          d.Price,
		"original_price": d.OriginalPrice,
		"currency":       d.Currency,
		"thumbnail_url":  d.ThumbnailURL,
		"preview_link":   d.PreviewLink,
		"status":         d.Status,
		"tags":           d.Tags,
		"requirements":   d.Requirements,
		"features":       d.Features,
	}
}

// CourseValues maps a stored course to draft values for an edit form.
func CourseValues(c *model.Course) map[string]any {
	return map[string]any{
		"title":          c.Title,
		"category":       c.Category,
		"description":    c.Description,
		"level":          c.Level,
		"duration":       c.Duration,
		"lessons":        c.Lessons,
		"price":          c.Price,
		"original_price": c.OriginalPrice,
		"currency":       c.Currency,
		"thumbnail_url":  c.ThumbnailURL,
		"preview_link":   c.PreviewLink,
		"status":         c.Status,
		"tags":           c.Tags,
		"requirements":   c.Requirements,
		"features":       featureMap(c.Features),
	}
}

func featureMap(f model.CourseFeatures) map[string]any {
	return map[string]any{
		"downloadable_content": f.DownloadableContent,
		"mobile_access":        f.MobileAccess,
		"quizzes":              f.Quizzes,
		"certificate":          f.Certificate,
		"assignments":          f.Assignments,
		"lifetime_access":      f.LifetimeAccess,
	}
}
