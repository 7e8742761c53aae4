package models

import "time"

type HeroSlide struct {
	ID       string `bson:"_id" json:"id"`
	Title    string `bson:"title" json:"title"`
	Subtitle string `bson:"subtitle" json:"subtitle"`
	ImageURL string `bson:"image_url" json:"image_url"`
	CTAText  string `bson:"cta_text" json:"cta_text"`
	CTALink  string `bson:"cta_link" json:"cta_link"`
	Order    int    `bson:"order" json:"order"`
	Active   bool   `bson:"active" json:"active"`
}

type FooterLink struct {
	Label string `bson:"label" json:"label"`
	URL   string `bson:"url" json:"url"`
}

// PageContent holds the editable copy of the footer, about and contact blocks (settings/<page>).
type PageContent struct {
	ID        string       `bson:"_id" json:"page"`
	Title     string       `bson:"title" json:"title"`
	Body      string       `bson:"body" json:"body"`
	Email     string       `bson:"email,omitempty" json:"email,omitempty"`
	Phone     string       `bson:"phone,omitempty" json:"phone,omitempty"`
	Address   string       `bson:"address,omitempty" json:"address,omitempty"`
	Links     []FooterLink `bson:"links,omitempty" json:"links,omitempty"`
	UpdatedAt time.Time    `bson:"updated_at" json:"updated_at"`
}

// ContentPages are the settings documents editable as copy.
var ContentPages = []string{"footer", "about", "contact"}

type ContactMessage struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Email     string    `bson:"email" json:"email"`
	Subject   string    `bson:"subject" json:"subject"`
	Message   string    `bson:"message" json:"message"`
	Read      bool      `bson:"read" json:"read"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
