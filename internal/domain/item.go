package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ItemType is the discriminator stored in items.type.
type ItemType string

const (
	ItemTypeBook  ItemType = "BOOK"
	ItemTypeAlbum ItemType = "ALBUM"
	ItemTypeMovie ItemType = "MOVIE"
)

var ErrInvalidItem = errors.New("invalid item")

// ParseItemType accepts the discriminator in any letter case.
func ParseItemType(s string) (ItemType, error) {
	switch t := ItemType(strings.ToUpper(strings.TrimSpace(s))); t {
	case ItemTypeBook, ItemTypeAlbum, ItemTypeMovie:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown item type %q", ErrInvalidItem, s)
}

// BookDetails holds the BOOK variant fields.
type BookDetails struct {
	Author string `json:"author"`
	ISBN   int64  `json:"isbn"`
}

// AlbumDetails holds the ALBUM variant fields.
type AlbumDetails struct {
	Artist string `json:"artist"`
	Etc    string `json:"etc"`
}

// MovieDetails holds the MOVIE variant fields.
type MovieDetails struct {
	Director string `json:"director"`
	Actor    string `json:"actor"`
}

// Item is a catalog entry. Exactly one of Book, Album or Movie is set and
// it must match Type. On the wire the variant fields sit next to the
// common ones.
type Item struct {
	ID        int64         `json:"id" db:"id"`
	Name      string        `json:"name" db:"name"`
	Price     int64         `json:"price" db:"price"`
	Stock     int           `json:"stock" db:"stock"`
	Type      ItemType      `json:"type" db:"type"`
	ImageURL  *string       `json:"image_url,omitempty" db:"image_url"`
	Book      *BookDetails  `json:"-"`
	Album     *AlbumDetails `json:"-"`
	Movie     *MovieDetails `json:"-"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

// NewBook, NewAlbum and NewMovie build items with their variant set.
func NewBook(name string, price int64, stock int, author string, isbn int64) *Item {
	return &Item{Name: name, Price: price, Stock: stock, Type: ItemTypeBook, Book: &BookDetails{Author: author, ISBN: isbn}}
}

func NewAlbum(name string, price int64, stock int, artist, etc string) *Item {
	return &Item{Name: name, Price: price, Stock: stock, Type: ItemTypeAlbum, Album: &AlbumDetails{Artist: artist, Etc: etc}}
}

func NewMovie(name string, price int64, stock int, director, actor string) *Item {
	return &Item{Name: name, Price: price, Stock: stock, Type: ItemTypeMovie, Movie: &MovieDetails{Director: director, Actor: actor}}
}

// Validate checks the common fields and that the active variant matches
// the discriminator.
func (i *Item) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if i.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidItem)
	}
	if i.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidItem)
	}

	set := 0
	for _, present := range []bool{i.Book != nil, i.Album != nil, i.Movie != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: exactly one variant must be set", ErrInvalidItem)
	}

	switch i.Type {
	case ItemTypeBook:
		if i.Book == nil || i.Book.Author == "" {
			return fmt.Errorf("%w: book requires author", ErrInvalidItem)
		}
	case ItemTypeAlbum:
		if i.Album == nil || i.Album.Artist == "" {
			return fmt.Errorf("%w: album requires artist", ErrInvalidItem)
		}
	case ItemTypeMovie:
		if i.Movie == nil || i.Movie.Director == "" || i.Movie.Actor == "" {
			return fmt.Errorf("%w: movie requires director and actor", ErrInvalidItem)
		}
	default:
		return fmt.Errorf("%w: unknown item type %q", ErrInvalidItem, i.Type)
	}
	return nil
}

// ItemWithCategories pairs an item with the categories it is connected to.
type ItemWithCategories struct {
	Item       *Item
	Categories []CategorySummary
}
