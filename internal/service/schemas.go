package service

import (
	"lmsadmin/internal/listing"
	"lmsadmin/internal/model"
)

// CourseSchema matches the filter term against title, category and
// description.
var CourseSchema = listing.Schema[model.Course]{
	SearchFields: func(c model.Course) []string {
		return []string{c.Title, c.Category, c.Description}
	},
	SortValue: func(c model.Course, f listing.SortField) any {
		switch f {
		case listing.SortTitle:
			return c.Title
		case listing.SortCreatedDate:
			return c.CreatedAt
		case listing.SortRating:
			return c.Rating
		case listing.SortPrice:
			return c.Price
		}
		return nil
	},
}

// UserSchema sorts users by name for title and by join date for
// createdDate. Users have no rating or price, so those keep natural order.
var UserSchema = listing.Schema[model.User]{
	SearchFields: func(u model.User) []string {
		return []string{u.Name, u.Email, u.Role}
	},
	SortValue: func(u model.User, f listing.SortField) any {
		switch f {
		case listing.SortTitle:
			return u.Name
		case listing.SortCreatedDate:
			return u.JoinedAt
		}
		return nil
	},
}
