package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vishwar23/portfolio/internal/contact"
	"github.com/vishwar23/portfolio/internal/content"
	"github.com/vishwar23/portfolio/internal/section"
	"github.com/vishwar23/portfolio/internal/store"
)

type navLink struct {
	ID     section.ID
	Label  string
	Active bool
}

func navLinks(active section.ID) []navLink {
	links := make([]navLink, 0, len(section.Order))
	for _, id := range section.Order {
		links = append(links, navLink{ID: id, Label: id.Label(), Active: id == active})
	}
	return links
}

func (s *Server) formData(sess *Session) gin.H {
	return gin.H{
		"form":        sess.Contact.View(),
		"contactInfo": s.portfolio.Contact,
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	sess := s.sessions.get(c)

	data := s.formData(sess)
	data["owner"] = content.Owner
	data["tagline"] = content.Tagline
	data["aboutMe"] = content.AboutMe
	data["skillsIntro"] = content.SkillsIntro
	data["projectsIntro"] = content.ProjectsIntro
	data["resume"] = content.ResumePath
	data["portfolio"] = s.portfolio
	data["skillGroups"] = s.portfolio.SkillGroups()
	data["nav"] = navLinks(sess.Tracker.Active())

	c.HTML(http.StatusOK, "index.html", data)
}

type layoutRequest struct {
	Sections []section.Extent `json:"sections"`
}

func (s *Server) handleLayout(c *gin.Context) {
	var req layoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid layout"})
		return
	}
	for _, e := range req.Sections {
		if _, err := section.Parse(string(e.ID)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	sess := s.sessions.get(c)
	active := sess.Tracker.Layout(req.Sections)
	c.JSON(http.StatusOK, gin.H{"active": active})
}

type scrollRequest struct {
	ScrollY        float64 `json:"scrollY"`
	DocHeight      float64 `json:"docHeight"`
	ViewportHeight float64 `json:"viewportHeight"`
}

func (s *Server) handleScroll(c *gin.Context) {
	var req scrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scroll position"})
		return
	}

	sess := s.sessions.get(c)
	active, changed := sess.Tracker.Update(req.ScrollY)
	if changed {
		sessionHash := s.admin.hash(sess.ID)
		s.goBackground(func(ctx context.Context) {
			if err := s.db.RecordSectionView(ctx, sessionHash, string(active)); err != nil {
				s.logger.Warn("Error recording section view", zap.Error(err))
			}
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"active":   active,
		"progress": section.Progress(req.ScrollY, req.DocHeight, req.ViewportHeight),
	})
}

func (s *Server) handleContactForm(c *gin.Context) {
	sess := s.sessions.get(c)
	c.HTML(http.StatusOK, "contact.html", s.formData(sess))
}

func (s *Server) handleField(c *gin.Context) {
	sess := s.sessions.get(c)

	// htmx posts the edited input under its own name.
	field := contact.Field(c.PostForm("field"))
	err := sess.Contact.UpdateField(field, c.PostForm(string(field)))
	switch {
	case errors.Is(err, contact.ErrUnknownField):
		c.String(http.StatusBadRequest, "unknown field")
		return
	case err != nil:
		c.String(http.StatusConflict, "form closed, reload the page")
		return
	}

	c.HTML(http.StatusOK, "contact-meta.html", s.formData(sess))
}

var formFields = []contact.Field{contact.FieldName, contact.FieldEmail, contact.FieldSubject, contact.FieldMessage}

func (s *Server) handleSubmit(c *gin.Context) {
	sess := s.sessions.get(c)

	// A full form post carries the latest values; apply them first.
	for _, f := range formFields {
		if v, ok := c.GetPostForm(string(f)); ok {
			_ = sess.Contact.UpdateField(f, v)
		}
	}

	d := sess.Contact.Draft()
	// A visitor closing the tab should not abort delivery.
	st := sess.Contact.Submit(context.WithoutCancel(c.Request.Context()))

	if st.State == contact.Submitted || (st.State == contact.Failed && st.Kind != contact.FailureValidation) {
		sub := store.Submission{Name: d.Name, Subject: d.Subject, Outcome: st.State.String()}
		if st.State == contact.Failed {
			sub.Reason = st.Kind.String()
		}
		s.goBackground(func(ctx context.Context) {
			if err := s.db.RecordSubmission(ctx, sub); err != nil {
				s.logger.Warn("Error recording submission", zap.Error(err))
			}
		})
	}

	c.HTML(http.StatusOK, "contact.html", s.formData(sess))
}

func (s *Server) handleStatus(c *gin.Context) {
	sess := s.sessions.get(c)
	c.HTML(http.StatusOK, "contact-status.html", s.formData(sess))
}

// handleCopy records the outcome of a copy the browser has already
// attempted. Form: label, result ("ok" or anything else), error.
func (s *Server) handleCopy(c *gin.Context) {
	sess := s.sessions.get(c)

	label := c.PostForm("label")
	info, ok := s.portfolio.ContactByLabel(label)
	if !ok {
		c.String(http.StatusNotFound, "unknown contact entry")
		return
	}

	reported := contact.ClipboardFunc(func(string) error {
		if c.PostForm("result") == "ok" {
			return nil
		}
		return fmt.Errorf("browser clipboard: %s", c.DefaultPostForm("error", "no result"))
	})
	_ = sess.Contact.CopyWith(reported, info.Copy, info.Label)

	s.renderCopyFeedback(c, sess, info)
}

// handleCopyStatus re-renders the feedback so it clears when it expires.
func (s *Server) handleCopyStatus(c *gin.Context) {
	sess := s.sessions.get(c)

	info, ok := s.portfolio.ContactByLabel(c.Query("label"))
	if !ok {
		c.String(http.StatusNotFound, "unknown contact entry")
		return
	}
	s.renderCopyFeedback(c, sess, info)
}

func (s *Server) renderCopyFeedback(c *gin.Context, sess *Session, info content.ContactInfo) {
	c.HTML(http.StatusOK, "copy-feedback.html", gin.H{
		"info":   info,
		"copied": sess.Contact.Copied(info.Label),
	})
}
