package domain

import (
	"encoding/json"
	"time"
)

// itemJSON is the flat wire form of an Item. Only the fields of the active
// variant are set.
type itemJSON struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Stock     int       `json:"stock"`
	Type      ItemType  `json:"type"`
	ImageURL  *string   `json:"image_url,omitempty"`
	Author    *string   `json:"author,omitempty"`
	ISBN      *int64    `json:"isbn,omitempty"`
	Artist    *string   `json:"artist,omitempty"`
	Etc       *string   `json:"etc,omitempty"`
	Director  *string   `json:"director,omitempty"`
	Actor     *string   `json:"actor,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i Item) toJSON() itemJSON {
	out := itemJSON{
		ID:        i.ID,
		Name:      i.Name,
		Price:     i.Price,
		Stock:     i.Stock,
		Type:      i.Type,
		ImageURL:  i.ImageURL,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
	switch {
	case i.Book != nil:
		out.Author, out.ISBN = &i.Book.Author, &i.Book.ISBN
	case i.Album != nil:
		out.Artist, out.Etc = &i.Album.Artist, &i.Album.Etc
	case i.Movie != nil:
		out.Director, out.Actor = &i.Movie.Director, &i.Movie.Actor
	}
	return out
}

// MarshalJSON writes the variant fields flat next to the common ones.
func (i Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.toJSON())
}

// UnmarshalJSON rebuilds the variant selected by type from the flat form.
func (i *Item) UnmarshalJSON(data []byte) error {
	var in itemJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*i = Item{
		ID:        in.ID,
		Name:      in.Name,
		Price:     in.Price,
		Stock:     in.Stock,
		Type:      in.Type,
		ImageURL:  in.ImageURL,
		CreatedAt: in.CreatedAt,
		UpdatedAt: in.UpdatedAt,
	}
	switch in.Type {
	case ItemTypeBook:
		i.Book = &BookDetails{Author: deref(in.Author), ISBN: deref(in.ISBN)}
	case ItemTypeAlbum:
		i.Album = &AlbumDetails{Artist: deref(in.Artist), Etc: deref(in.Etc)}
	case ItemTypeMovie:
		i.Movie = &MovieDetails{Director: deref(in.Director), Actor: deref(in.Actor)}
	}
	return nil
}

// MarshalJSON writes the flat item with a categories list appended.
func (c ItemWithCategories) MarshalJSON() ([]byte, error) {
	var out struct {
		itemJSON
		Categories []CategorySummary `json:"categories"`
	}
	if c.Item != nil {
		out.itemJSON = c.Item.toJSON()
	}
	out.Categories = c.Categories
	if out.Categories == nil {
		out.Categories = []CategorySummary{}
	}
	return json.Marshal(out)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
