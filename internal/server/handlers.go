package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kaptinlin/jsonrepair"

	"synapse/internal/agent"
	"synapse/internal/geo"
	"synapse/internal/session"
	"synapse/internal/tools"
)

// heartbeatInterval paces the comment frames sent while a stream is quiet.
const heartbeatInterval = 15 * time.Second

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"pushDryRun":  s.cfg.PushDryRun,
		"maxSteps":    s.cfg.MaxSteps,
		"sessions":    s.sessions.Len(),
		"toolCount":   len(s.registry.List()),
		"requireAuth": false,
	})
}

func (s *Server) handleTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": s.registry.List()})
}

// handleAgentRun streams a run over SSE. With a session_id query parameter it
// resumes the suspended run instead of starting a new one.
func (s *Server) handleAgentRun(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Query("session_id"))
	if sessionID == "" {
		sessionID = strings.TrimSpace(c.Query("resume_session"))
	}
	answers := answersFromJSON(c.Query("answers"))

	if sessionID != "" {
		saved, ok := s.sessions.Load(sessionID)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_session"})
			return
		}
		h := saved.Hints
		if h == nil {
			h = &session.Hints{}
		}
		h.MergeAnswers(answers)
		s.applyTokenOverrides(c, h)

		s.streamEvents(c, "resume", saved.Scenario, h, agent.RunOptions{
			SessionID:   sessionID,
			StartAtStep: saved.StepsDone,
			Resume:      true,
		})
		return
	}

	scenario := strings.TrimSpace(c.Query("scenario"))
	if scenario == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing scenario"})
		return
	}

	scenario, h := s.buildRunHints(c, scenario)
	h.MergeAnswers(answers)

	s.streamEvents(c, "run", scenario, h, agent.RunOptions{})
}

// handleClarifyContinue records a clarify answer and resumes the stream.
// Accepts both GET with query parameters and POST with a JSON body.
func (s *Server) handleClarifyContinue(c *gin.Context) {
	var sid, qid, expected, raw string

	if c.Request.Method == http.MethodGet {
		sid = strings.TrimSpace(c.Query("session_id"))
		qid = strings.TrimSpace(c.Query("question_id"))
		expected = strings.TrimSpace(c.DefaultQuery("expected", "string"))
		raw = c.Query("answer")
	} else {
		var body struct {
			SessionID  string `json:"session_id"`
			QuestionID string `json:"question_id"`
			Expected   string `json:"expected"`
			Answer     string `json:"answer"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		sid = strings.TrimSpace(body.SessionID)
		qid = strings.TrimSpace(body.QuestionID)
		expected = strings.TrimSpace(body.Expected)
		if expected == "" {
			expected = "string"
		}
		raw = body.Answer
	}

	if sid == "" || qid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session_id or question_id"})
		return
	}

	saved, ok := s.sessions.Load(sid)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "invalid_or_expired_session"})
		return
	}

	h := saved.Hints
	if h == nil {
		h = &session.Hints{}
	}
	h.SetAnswer(qid, normalizeAnswerValue(parseAnswer(raw, expected)))

	saved.Hints = h
	s.sessions.Save(saved)

	s.streamEvents(c, "resume", saved.Scenario, h, agent.RunOptions{
		SessionID:   sid,
		StartAtStep: saved.StepsDone,
		Resume:      true,
	})
}

// handleResolveSync runs the agent to completion and returns the full trace.
func (s *Server) handleResolveSync(c *gin.Context) {
	var body struct {
		Scenario       string         `json:"scenario"`
		SessionID      string         `json:"session_id"`
		Answers        map[string]any `json:"answers"`
		Origin         []float64      `json:"origin"`
		Dest           []float64      `json:"dest"`
		DriverToken    string         `json:"driver_token"`
		PassengerToken string         `json:"passenger_token"`
		CustomerToken  string         `json:"customer_token"`
		MerchantID     string         `json:"merchant_id"`
		OrderID        string         `json:"order_id"`
		DriverID       string         `json:"driver_id"`
		RecipientID    string         `json:"recipient_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	s.metrics.runStarted("sync")

	if sid := strings.TrimSpace(body.SessionID); sid != "" {
		saved, ok := s.sessions.Load(sid)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_session"})
			return
		}
		h := saved.Hints
		if h == nil {
			h = &session.Hints{}
		}
		h.MergeAnswers(body.Answers)
		trace := s.agent.ResolveSync(c.Request.Context(), saved.Scenario, h)
		c.JSON(http.StatusOK, gin.H{"trace": trace})
		return
	}

	scenario := strings.TrimSpace(body.Scenario)
	if scenario == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing scenario"})
		return
	}

	h := &session.Hints{
		DriverToken:    strings.TrimSpace(body.DriverToken),
		PassengerToken: strings.TrimSpace(body.PassengerToken),
		CustomerToken:  strings.TrimSpace(body.CustomerToken),
		MerchantID:     strings.TrimSpace(body.MerchantID),
		OrderID:        strings.TrimSpace(body.OrderID),
		DriverID:       strings.TrimSpace(body.DriverID),
		RecipientID:    strings.TrimSpace(body.RecipientID),
	}
	if len(body.Origin) == 2 {
		h.Origin = &geo.LatLng{Lat: body.Origin[0], Lon: body.Origin[1]}
	}
	if len(body.Dest) == 2 {
		h.Dest = &geo.LatLng{Lat: body.Dest[0], Lon: body.Dest[1]}
	}
	s.fillDefaults(h)
	s.fillRoutePlaces(scenario, h)
	h.MergeAnswers(body.Answers)

	trace := s.agent.ResolveSync(c.Request.Context(), scenario, h)
	c.JSON(http.StatusOK, gin.H{"trace": trace})
}

// handleEvidenceUpload stores multipart image uploads and, when the request
// names a suspended session, records the file references as that session's
// pending answer so the resumed run picks them up.
func (s *Server) handleEvidenceUpload(c *gin.Context) {
	orderID := c.DefaultPostForm("order_id", "order_demo")
	sessionID := c.PostForm("session_id")
	questionID := c.PostForm("question_id")

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	var saved []string
	for _, file := range form.File["images"] {
		src, err := file.Open()
		if err != nil {
			s.logger.Warn("evidence upload: open %s: %v", file.Filename, err)
			continue
		}
		ref, err := s.evidence.SaveFile(orderID, file.Filename, src)
		src.Close()
		if err != nil {
			s.logger.Warn("evidence upload: save %s: %v", file.Filename, err)
			continue
		}
		saved = append(saved, ref)
	}

	if sessionID != "" && questionID != "" && len(saved) > 0 {
		if sess, ok := s.sessions.Load(sessionID); ok {
			if sess.Hints == nil {
				sess.Hints = &session.Hints{}
			}
			sess.Hints.SetAnswer(questionID, saved)
			s.sessions.Save(sess)
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "files": saved})
}

// handleNotifySend delivers a one-off push notification.
func (s *Server) handleNotifySend(c *gin.Context) {
	var body struct {
		Token string            `json:"token"`
		Title string            `json:"title"`
		Body  string            `json:"body"`
		Data  map[string]string `json:"data"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if strings.TrimSpace(body.Token) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}
	if body.Title == "" {
		body.Title = "Notification"
	}

	res := s.notifier.Send(c.Request.Context(), body.Token, body.Title, body.Body, body.Data)
	s.metrics.pushSent(res.Delivered)
	c.JSON(http.StatusOK, res)
}

// buildRunHints assembles first-run hints from query parameters and the
// scenario text, and appends the human-readable hint lines the demo client
// shows in its transcript.
func (s *Server) buildRunHints(c *gin.Context, scenario string) (string, *session.Hints) {
	h := &session.Hints{
		DriverToken:    strings.TrimSpace(c.Query("driver_token")),
		PassengerToken: strings.TrimSpace(c.Query("passenger_token")),
		CustomerToken:  strings.TrimSpace(c.Query("customer_token")),
		MerchantID:     strings.TrimSpace(c.Query("merchant_id")),
		OrderID:        strings.TrimSpace(c.Query("order_id")),
		DriverID:       strings.TrimSpace(c.Query("driver_id")),
		RecipientID:    strings.TrimSpace(c.Query("recipient_id")),
	}

	originQ := strings.TrimSpace(c.Query("origin"))
	destQ := strings.TrimSpace(c.Query("dest"))
	if originQ != "" && destQ != "" {
		scenario += fmt.Sprintf("\n\n(Hint: origin=%s, dest=%s)", originQ, destQ)
		if ll, ok := geo.ParseLatLng(originQ); ok {
			h.Origin = &ll
		}
		if ll, ok := geo.ParseLatLng(destQ); ok {
			h.Dest = &ll
		}
		if h.Origin == nil {
			h.OriginPlace = geo.OnlyPlaceName(originQ)
		}
		if h.Dest == nil {
			h.DestPlace = geo.OnlyPlaceName(destQ)
		}
	}

	s.fillDefaults(h)
	s.fillRoutePlaces(scenario, h)
	h.ScenarioText = scenario
	return scenario, h
}

func (s *Server) fillDefaults(h *session.Hints) {
	if h.DriverToken == "" {
		h.DriverToken = s.cfg.DefaultDriverToken
	}
	if h.PassengerToken == "" {
		h.PassengerToken = s.cfg.DefaultPassengerToken
	}
	if h.CustomerToken == "" {
		h.CustomerToken = s.cfg.DefaultCustomerToken
	}
}

// fillRoutePlaces extracts origin and destination place names from the
// scenario text and geocodes them when coordinates are missing.
func (s *Server) fillRoutePlaces(scenario string, h *session.Hints) {
	if h.OriginPlace == "" && h.DestPlace == "" {
		origin, dest := tools.ExtractRoute(scenario)
		h.OriginPlace = origin
		h.DestPlace = dest
	}
	if h.Origin == nil && h.OriginPlace != "" {
		if ll, ok := geo.Geocode(h.OriginPlace); ok {
			h.Origin = &ll
		}
	}
	if h.Dest == nil && h.DestPlace != "" {
		if ll, ok := geo.Geocode(h.DestPlace); ok {
			h.Dest = &ll
		}
	}
}

func (s *Server) applyTokenOverrides(c *gin.Context, h *session.Hints) {
	if tok := strings.TrimSpace(c.Query("driver_token")); tok != "" {
		h.DriverToken = tok
	}
	if tok := strings.TrimSpace(c.Query("passenger_token")); tok != "" {
		h.PassengerToken = tok
	}
	if tok := strings.TrimSpace(c.Query("customer_token")); tok != "" {
		h.CustomerToken = tok
	}
}

// streamEvents writes the run's events to the client in SSE framing and
// terminates the stream with the end marker.
func (s *Server) streamEvents(c *gin.Context, mode, scenario string, h *session.Hints, opts agent.RunOptions) {
	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	s.metrics.runStarted(mode)
	s.metrics.streamOpened()
	defer s.metrics.streamClosed()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	stream := s.agent.ResolveStream(c.Request.Context(), scenario, h, opts)
	for {
		select {
		case evt, open := <-stream:
			if !open {
				fmt.Fprint(c.Writer, "data: [DONE]\n\n")
				c.Writer.Flush()
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				s.logger.Error("stream: marshal %s event: %v", evt.Type, err)
				continue
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
			c.Writer.Flush()
			s.metrics.eventEmitted(string(evt.Type))
		case <-heartbeat.C:
			// Comment frames keep proxies from timing out quiet streams;
			// clients discard them.
			fmt.Fprint(c.Writer, ": ping\n\n")
			c.Writer.Flush()
		}
	}
}

func answersFromJSON(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var answers map[string]any
	if err := json.Unmarshal([]byte(raw), &answers); err == nil {
		return answers
	}
	if fixed, err := jsonrepair.JSONRepair(raw); err == nil {
		if err := json.Unmarshal([]byte(fixed), &answers); err == nil {
			return answers
		}
	}
	return nil
}
