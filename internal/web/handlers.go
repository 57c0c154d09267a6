package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"xdigest/internal/filter"
	"xdigest/internal/model"
	"xdigest/internal/settings"
)

// Notice levels shown above the form.
const (
	levelSuccess = "success"
	levelWarning = "warning"
	levelError   = "error"
)

// TestResponse is the body of POST /test.
type TestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type status struct {
	Cookies   bool
	API       bool
	Mail      bool
	Telegram  bool
	Schedule  string
	LastSent  string
	Runs      []model.Run
	RunsError string
}

func (s *Server) index(c *gin.Context) {
	st, err := settings.LoadOrDefault(s.opts.SettingsPath)
	if err != nil {
		s.log.Error("load settings", "path", s.opts.SettingsPath, "error", err)
		c.String(http.StatusInternalServerError, "cannot read settings: %v", err)
		return
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"S":        st,
		"Include":  strings.Join(st.IncludeKeywords, "\n"),
		"Exclude":  strings.Join(st.ExcludeKeywords, "\n"),
		"ChatID":   chatIDValue(st.TelegramChatID),
		"Status":   s.status(c, st),
		"Notice":   c.Query("notice"),
		"Level":    noticeLevel(c.Query("level")),
		"ListIsX":  st.IsPlatformList(),
		"Defaults": settings.DefaultScheduleTime,
	})
}

func (s *Server) status(c *gin.Context, st *settings.Settings) status {
	out := status{
		Cookies:  st.XCookies.AuthToken != "" && st.XCookies.CT0 != "",
		API:      st.GeminiAPIKey != "",
		Mail:     st.GmailUser != "" && st.GmailAppPassword != "",
		Telegram: st.HasTelegram(),
		Schedule: st.ScheduleTime,
	}
	if s.opts.Marker != nil {
		if day, ok := s.opts.Marker.LastSent(); ok {
			out.LastSent = day
		}
	}
	if s.opts.History != nil {
		runs, err := s.opts.History.ListRuns(c.Request.Context(), recentRuns)
		if err != nil {
			s.log.Error("list runs", "error", err)
			out.RunsError = err.Error()
		}
		out.Runs = runs
	}
	return out
}

func (s *Server) save(c *gin.Context) {
	st, err := settingsFromForm(c)
	if err != nil {
		redirect(c, levelError, "Settings not saved: "+err.Error())
		return
	}

	if err := settings.Save(s.opts.SettingsPath, st); err != nil {
		s.log.Error("save settings", "path", s.opts.SettingsPath, "error", err)
		redirect(c, levelError, fmt.Sprintf("Could not save settings: %v", err))
		return
	}
	s.log.Info("settings saved", "path", s.opts.SettingsPath)

	if s.opts.Registrar == nil {
		redirect(c, levelSuccess, "Settings saved.")
		return
	}
	if err := s.opts.Registrar.Ensure(c.Request.Context(), st.ScheduleTime, s.opts.Entrypoint); err != nil {
		s.log.Error("register trigger", "schedule_time", st.ScheduleTime, "error", err)
		redirect(c, levelWarning, fmt.Sprintf("Settings saved. Scheduler registration failed: %v", err))
		return
	}
	s.log.Info("trigger registered", "schedule_time", st.ScheduleTime)
	redirect(c, levelSuccess, fmt.Sprintf("Settings saved. The digest runs daily at %s; a missed run starts at the next opportunity.", st.ScheduleTime))
}

func (s *Server) help(c *gin.Context) {
	c.HTML(http.StatusOK, "help.html", gin.H{"Defaults": settings.DefaultScheduleTime})
}

func (s *Server) test(c *gin.Context) {
	st, err := settings.LoadOrDefault(s.opts.SettingsPath)
	if err != nil {
		s.log.Error("load settings", "path", s.opts.SettingsPath, "error", err)
		c.JSON(http.StatusInternalServerError, TestResponse{Message: fmt.Sprintf("cannot read settings: %v", err)})
		return
	}

	rep := s.opts.Diagnose(c.Request.Context(), st)
	s.log.Info("connectivity test", "success", rep.Success())
	c.JSON(http.StatusOK, TestResponse{Success: rep.Success(), Message: rep.Message()})
}

func settingsFromForm(c *gin.Context) (*settings.Settings, error) {
	field := func(name string) string { return strings.TrimSpace(c.PostForm(name)) }

	st := &settings.Settings{
		ListURL:          field("list_url"),
		GeminiAPIKey:     field("gemini_api_key"),
		GmailUser:        field("gmail_user"),
		GmailAppPassword: field("gmail_app_password"),
		ScheduleTime:     field("schedule_time"),
		XCookies: settings.Cookies{
			AuthToken: field("auth_token"),
			CT0:       field("ct0"),
			TwID:      field("twid"),
		},
		IncludeKeywords:  lines(c.PostForm("include_keywords")),
		ExcludeKeywords:  lines(c.PostForm("exclude_keywords")),
		TelegramBotToken: field("telegram_bot_token"),
	}

	if st.ScheduleTime == "" {
		st.ScheduleTime = settings.DefaultScheduleTime
	}
	hour, minute, err := settings.ParseScheduleTime(st.ScheduleTime)
	if err != nil {
		return nil, fmt.Errorf("schedule time must be HH:MM, got %q", st.ScheduleTime)
	}
	st.ScheduleTime = fmt.Sprintf("%02d:%02d", hour, minute)

	if raw := field("telegram_chat_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("telegram chat id must be a number, got %q", raw)
		}
		st.TelegramChatID = id
	}

	if _, err := filter.FromKeywords(st.IncludeKeywords, st.ExcludeKeywords); err != nil {
		return nil, err
	}
	return st, nil
}

func lines(v string) []string {
	var out []string
	for _, l := range strings.Split(v, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func chatIDValue(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func noticeLevel(v string) string {
	switch v {
	case levelSuccess, levelWarning:
		return v
	default:
		return levelError
	}
}

func redirect(c *gin.Context, level, notice string) {
	q := url.Values{"level": {level}, "notice": {notice}}
	c.Redirect(http.StatusSeeOther, "/?"+q.Encode())
}
