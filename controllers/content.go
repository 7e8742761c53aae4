package controllers

import (
	"errors"
	"net/http"
	"net/mail"
	"slices"
	"sort"
	"strings"
	"time"

	"go-storefront/models"
	"go-storefront/store"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// ContentController handles the storefront copy: hero slides, footer/about/contact pages and
// contact form messages
type ContentController struct {
	HeroSlides      store.Collection[models.HeroSlide]
	Pages           store.Collection[models.PageContent]
	ContactMessages store.Collection[models.ContactMessage]
}

func NewContentController(db *store.Database) *ContentController {
	return &ContentController{
		HeroSlides:      db.HeroSlides,
		Pages:           db.Pages,
		ContactMessages: db.ContactMessages,
	}
}

// GetHeroSlides returns the slides in display order. Admins pass ?all=true to include
// inactive ones.
func (cc *ContentController) GetHeroSlides(w http.ResponseWriter, r *http.Request) {
	slides, err := cc.HeroSlides.All(r.Context())
	if err != nil {
		http.Error(w, "Error fetching hero slides", http.StatusServiceUnavailable)
		return
	}
	if r.URL.Query().Get("all") != "true" {
		slides = slices.DeleteFunc(slides, func(s models.HeroSlide) bool { return !s.Active })
	}
	sort.SliceStable(slides, func(i, j int) bool { return slides[i].Order < slides[j].Order })
	writeJSON(w, http.StatusOK, slides)
}

func (cc *ContentController) CreateHeroSlide(w http.ResponseWriter, r *http.Request) {
	var slide models.HeroSlide
	if err := decode(r, &slide); err != nil || slide.ImageURL == "" {
		http.Error(w, "An image is required", http.StatusBadRequest)
		return
	}
	slide.ID = uuid.NewString()
	if err := cc.HeroSlides.Insert(r.Context(), slide); err != nil {
		http.Error(w, "Error creating hero slide", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusCreated, slide)
}

type HeroSlidePatch struct {
	Title    *string `bson:"title,omitempty" json:"title"`
	Subtitle *string `bson:"subtitle,omitempty" json:"subtitle"`
	ImageURL *string `bson:"image_url,omitempty" json:"image_url"`
	CTAText  *string `bson:"cta_text,omitempty" json:"cta_text"`
	CTALink  *string `bson:"cta_link,omitempty" json:"cta_link"`
	Order    *int    `bson:"order,omitempty" json:"order"`
	Active   *bool   `bson:"active,omitempty" json:"active"`
}

func (cc *ContentController) UpdateHeroSlide(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var patch HeroSlidePatch
	if err := decodeStrict(r, &patch); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	fields, err := patchFields(patch)
	if err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}

	err = cc.HeroSlides.Merge(r.Context(), id, fields)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Hero slide not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Error updating hero slide", http.StatusServiceUnavailable)
		return
	}
	slide, err := cc.HeroSlides.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Error fetching hero slide", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, slide)
}

func (cc *ContentController) DeleteHeroSlide(w http.ResponseWriter, r *http.Request) {
	err := cc.HeroSlides.Delete(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Hero slide not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Error deleting hero slide", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetContent returns settings/<page>; a page never saved comes back empty
func (cc *ContentController) GetContent(w http.ResponseWriter, r *http.Request) {
	page := mux.Vars(r)["page"]
	if !slices.Contains(models.ContentPages, page) {
		http.Error(w, "Unknown content page", http.StatusNotFound)
		return
	}
	content, err := cc.Pages.Get(r.Context(), page)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, models.PageContent{ID: page})
		return
	}
	if err != nil {
		http.Error(w, "Error fetching content", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

// PutContent replaces settings/<page> (Admin only)
func (cc *ContentController) PutContent(w http.ResponseWriter, r *http.Request) {
	page := mux.Vars(r)["page"]
	if !slices.Contains(models.ContentPages, page) {
		http.Error(w, "Unknown content page", http.StatusNotFound)
		return
	}
	var content models.PageContent
	if err := decode(r, &content); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	content.ID = page
	content.UpdatedAt = time.Now().UTC()
	if err := cc.Pages.Put(r.Context(), page, content); err != nil {
		http.Error(w, "Error saving content", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

// SubmitContact stores a message from the public contact form
func (cc *ContentController) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var msg models.ContactMessage
	if err := decode(r, &msg); err != nil {
		http.Error(w, "Invalid input", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(msg.Name) == "" || strings.TrimSpace(msg.Message) == "" {
		http.Error(w, "Name and message are required", http.StatusBadRequest)
		return
	}
	if _, err := mail.ParseAddress(msg.Email); err != nil {
		http.Error(w, "A valid email is required", http.StatusBadRequest)
		return
	}
	msg.ID = uuid.NewString()
	msg.Read = false
	msg.CreatedAt = time.Now().UTC()
	if err := cc.ContactMessages.Insert(r.Context(), msg); err != nil {
		http.Error(w, "Error sending message", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (cc *ContentController) GetContactMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := cc.ContactMessages.All(r.Context())
	if err != nil {
		http.Error(w, "Error fetching messages", http.StatusServiceUnavailable)
		return
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].CreatedAt.After(msgs[j].CreatedAt) })
	writeJSON(w, http.StatusOK, msgs)
}

func (cc *ContentController) DeleteContactMessage(w http.ResponseWriter, r *http.Request) {
	err := cc.ContactMessages.Delete(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Message not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Error deleting message", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
