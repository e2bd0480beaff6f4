package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hahornah-bot/internal/database"
	"hahornah-bot/internal/models"
	"hahornah-bot/internal/responses"
	"hahornah-bot/internal/session"
	"hahornah-bot/pkg/logger"
)

// UserStore is the registry surface the controller needs.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, id int64, username string) (*models.User, error)
	Rank(ctx context.Context, id int64) (int, error)
	Top(ctx context.Context, n int) ([]models.User, error)
}

// JokeStore is the joke repository surface the controller needs.
type JokeStore interface {
	Create(ctx context.Context, body string, authorID int64) (*models.Joke, error)
	RandomUnseen(ctx context.Context, userID int64) (*models.Joke, error)
	BestUnseen(ctx context.Context, userID int64) (*models.Joke, error)
	RandomFavorite(ctx context.Context, userID int64) (*models.Joke, error)
	Vote(ctx context.Context, userID, jokeID int64, positive bool) error
	AuthorStats(ctx context.Context, userID int64) (jokes int, totalVotes int, err error)
}

// Reply is one outbound message: text plus an optional choice keyboard, or an
// instruction to remove the current keyboard.
type Reply struct {
	Text           string
	Buttons        [][]string
	OneTime        bool
	RemoveKeyboard bool
}

var menuButtons = [][]string{
	{"/random_joke"},
	{"/random_favorite_joke"},
	{"/best_joke"},
	{"/add_joke"},
	{"/profile"},
	{"/top10"},
	{"/help"},
}

var voteButtons = [][]string{
	{"/hah"},
	{"/nah"},
}

const helpMessage = "*Commands*\n" +
	"/help - Display this message\n" +
	"/start - Display commands keyboard\n" +
	"/random\\_joke - Display random joke\n" +
	"/random\\_favorite\\_joke - Display random joke from favorites\n" +
	"/best\\_joke - Display joke with the most votes that you didn't see yet\n" +
	"/add\\_joke - Proceed to add a joke\n" +
	"/profile - Show user profile\n" +
	"/top10 - Show top 10 users by score\n" +
	"/cancel - Cancel current action (adding joke/registering user)"

// Controller is the conversation state machine. It routes each inbound
// message by command or by the chat's current flow state, mutates the
// registry and repository, and produces the ordered replies to send.
type Controller struct {
	users    UserStore
	jokes    JokeStore
	sessions *session.Store
	catalog  *responses.Catalog
}

func NewController(users UserStore, jokes JokeStore, sessions *session.Store, catalog *responses.Catalog) *Controller {
	return &Controller{
		users:    users,
		jokes:    jokes,
		sessions: sessions,
		catalog:  catalog,
	}
}

// HandleMessage processes one inbound message for a chat and returns the
// replies to deliver, in order. Commands win over flow input; flow input
// wins over the menu fallback. Messages from the same chat are serialized
// on the session lock.
func (c *Controller) HandleMessage(ctx context.Context, chatID int64, text string) ([]Reply, error) {
	sess := c.sessions.Get(chatID)
	sess.Lock()
	defer sess.Unlock()

	text = strings.TrimSpace(text)

	switch text {
	case "/start":
		return c.menu(ctx, chatID, sess)
	case "/help":
		return []Reply{{Text: helpMessage}}, nil
	case "/cancel":
		return c.cancel(sess), nil
	case "/add_joke":
		return c.jokePrompt(sess), nil
	case "/random_joke":
		return c.randomJoke(ctx, chatID, sess)
	case "/random_favorite_joke":
		return c.randomFavorite(ctx, chatID, sess)
	case "/best_joke":
		return c.bestJoke(ctx, chatID, sess)
	case "/profile":
		return c.profile(ctx, chatID, sess)
	case "/top10":
		return c.top10(ctx, chatID, sess)
	case "/hah":
		return c.vote(ctx, chatID, sess, true)
	case "/nah":
		return c.vote(ctx, chatID, sess, false)
	}

	// The register keyboard button carries its label from the catalog.
	if text == c.catalog.One("user_new_keyboard_button") {
		sess.State = session.StateAwaitingUsername
		return []Reply{{Text: c.catalog.Random("user_new_prompt")}}, nil
	}

	switch sess.State {
	case session.StateAwaitingUsername:
		return c.usernameReceived(ctx, chatID, sess, text)
	case session.StateAwaitingJoke:
		return c.jokeReceived(ctx, chatID, sess, text)
	}

	return c.menu(ctx, chatID, sess)
}

// currentUser resolves the registered user for the chat, caching it on the
// session for the rest of the process lifetime.
func (c *Controller) currentUser(ctx context.Context, chatID int64, sess *session.Session) (*models.User, error) {
	if sess.User != nil {
		return sess.User, nil
	}

	user, err := c.users.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	sess.User = user
	return user, nil
}

// requireUser resolves the user or, if the chat is unregistered, produces the
// registration keyboard instead.
func (c *Controller) requireUser(ctx context.Context, chatID int64, sess *session.Session) (*models.User, []Reply, error) {
	user, err := c.currentUser(ctx, chatID, sess)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, []Reply{c.registerPrompt()}, nil
		}
		return nil, nil, err
	}
	return user, nil, nil
}

func (c *Controller) registerPrompt() Reply {
	return Reply{
		Text: c.catalog.Random("user_not_registered"),
		Buttons: [][]string{
			{c.catalog.One("user_new_keyboard_button")},
			{"/cancel"},
		},
		OneTime: true,
	}
}

func (c *Controller) menuReply() Reply {
	return Reply{
		Text:    c.catalog.Random("menu"),
		Buttons: menuButtons,
	}
}

func (c *Controller) menu(ctx context.Context, chatID int64, sess *session.Session) ([]Reply, error) {
	_, replies, err := c.requireUser(ctx, chatID, sess)
	if replies != nil || err != nil {
		return replies, err
	}
	return []Reply{c.menuReply()}, nil
}

func (c *Controller) cancel(sess *session.Session) []Reply {
	sess.State = session.StateIdle
	return []Reply{
		{Text: c.catalog.Random("cancel")},
		c.menuReply(),
	}
}

func (c *Controller) usernameReceived(ctx context.Context, chatID int64, sess *session.Session, username string) ([]Reply, error) {
	user, err := c.users.Create(ctx, chatID, username)
	switch {
	case errors.Is(err, models.ErrInvalidCharacters):
		return []Reply{{Text: c.catalog.Random("username_invalid_characters")}}, nil
	case errors.Is(err, models.ErrTooShort):
		return []Reply{{Text: c.catalog.Random("username_too_short")}}, nil
	case errors.Is(err, models.ErrTooLong):
		return []Reply{{Text: c.catalog.Random("username_too_long")}}, nil
	case errors.Is(err, database.ErrAlreadyRegistered):
		// Registered in another session of the same chat, nothing to do.
		logger.Warn("Registration for existing user", logger.Int64("chat_id", chatID))
		sess.State = session.StateIdle
		return []Reply{c.menuReply()}, nil
	case err != nil:
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	logger.Info("User registered",
		logger.Int64("chat_id", chatID),
		logger.String("username", user.Username),
	)

	sess.User = user
	sess.State = session.StateIdle
	return []Reply{
		{Text: c.catalog.Random("user_register_success")},
		c.menuReply(),
	}, nil
}

func (c *Controller) jokePrompt(sess *session.Session) []Reply {
	sess.State = session.StateAwaitingJoke
	return []Reply{{
		Text:           c.catalog.Random("joke_new_prompt"),
		RemoveKeyboard: true,
	}}
}

func (c *Controller) jokeReceived(ctx context.Context, chatID int64, sess *session.Session, body string) ([]Reply, error) {
	user, err := c.currentUser(ctx, chatID, sess)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			sess.State = session.StateIdle
			return []Reply{c.registerPrompt()}, nil
		}
		return nil, err
	}

	joke, err := c.jokes.Create(ctx, body, user.ID)
	switch {
	case errors.Is(err, models.ErrTooShort):
		return []Reply{{Text: c.catalog.Random("joke_too_short")}}, nil
	case errors.Is(err, models.ErrTooLong):
		return []Reply{{Text: c.catalog.Random("joke_too_long")}}, nil
	case err != nil:
		return nil, fmt.Errorf("failed to add joke: %w", err)
	}

	logger.Info("Joke submitted",
		logger.Int64("joke_id", joke.ID),
		logger.Int64("author_id", user.ID),
	)

	sess.State = session.StateIdle
	return []Reply{
		{Text: c.catalog.Random("joke_submitted")},
		c.menuReply(),
	}, nil
}

func (c *Controller) randomJoke(ctx context.Context, chatID int64, sess *session.Session) ([]Reply, error) {
	user, replies, err := c.requireUser(ctx, chatID, sess)
	if replies != nil || err != nil {
		return replies, err
	}

	joke, err := c.jokes.RandomUnseen(ctx, user.ID)
	if err != nil {
		if errors.Is(err, database.ErrNoJokes) {
			return []Reply{{Text: c.catalog.Random("no_new_jokes")}}, nil
		}
		return nil, err
	}

	sess.SetLastJoke(joke.ID)
	return []Reply{
		{Text: joke.Body},
		{Text: c.catalog.Random("hah_or_nah"), Buttons: voteButtons, OneTime: true},
	}, nil
}

// bestJoke only displays the joke. It neither arms the vote slot nor shows
// the vote keyboard.
func (c *Controller) bestJoke(ctx context.Context, chatID int64, sess *session.Session) ([]Reply, error) {
	user, replies, err := c.requireUser(ctx, chatID, sess)
	if replies != nil || err != nil {
		return replies, err
	}

	joke, err := c.jokes.BestUnseen(ctx, user.ID)
	if err != nil {
		if errors.Is(err, database.ErrNoJokes) {
			return []Reply{{Text: c.catalog.Random("no_new_jokes")}}, nil
		}
		return nil, err
	}

	return []Reply{{Text: joke.Body}}, nil
}

func (c *Controller) randomFavorite(ctx context.Context, chatID int64, sess *session.Session) ([]Reply, error) {
	user, replies, err := c.requireUser(ctx, chatID, sess)
	if replies != nil || err != nil {
		return replies, err
	}

	joke, err := c.jokes.RandomFavorite(ctx, user.ID)
	if err != nil {
		if errors.Is(err, database.ErrNoFavorites) {
			return []Reply{{Text: c.catalog.Random("joke_no_favorite")}}, nil
		}
		return nil, err
	}

	return []Reply{{Text: joke.Body}}, nil
}

// vote applies /hah or /nah to the joke last shown in this chat. The vote
// slot is cleared on every attempt, valid or not, so a stale joke cannot be
// voted on twice. Invalid votes are logged and hidden behind the generic
// post-vote reply.
func (c *Controller) vote(ctx context.Context, chatID int64, sess *session.Session, positive bool) ([]Reply, error) {
	user, replies, err := c.requireUser(ctx, chatID, sess)
	if replies != nil || err != nil {
		return replies, err
	}

	if !sess.HasLastJoke {
		return []Reply{{Text: c.catalog.Random("joke_no_current")}}, nil
	}

	jokeID := sess.LastJokeID
	sess.ClearLastJoke()

	if err := c.jokes.Vote(ctx, user.ID, jokeID, positive); err != nil {
		if errors.Is(err, database.ErrInvalidVote) || errors.Is(err, database.ErrJokeNotFound) {
			logger.Warn("Rejected vote",
				logger.Err(err),
				logger.Int64("user_id", user.ID),
				logger.Int64("joke_id", jokeID),
				logger.Bool("positive", positive),
			)
		} else {
			return nil, err
		}
	}

	return []Reply{{Text: c.catalog.Random("after_vote"), RemoveKeyboard: true}}, nil
}

func (c *Controller) profile(ctx context.Context, chatID int64, sess *session.Session) ([]Reply, error) {
	user, replies, err := c.requireUser(ctx, chatID, sess)
	if replies != nil || err != nil {
		return replies, err
	}

	rank, err := c.users.Rank(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	jokes, totalVotes, err := c.jokes.AuthorStats(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	average := 0.0
	if jokes > 0 {
		average = float64(totalVotes) / float64(jokes)
	}

	logger.Debug("Profile viewed",
		logger.Int64("user_id", user.ID),
		logger.Int("rank", rank),
		logger.Float64("average_score", average),
	)

	return []Reply{{Text: formatProfile(user, rank, jokes, average)}}, nil
}

func (c *Controller) top10(ctx context.Context, chatID int64, sess *session.Session) ([]Reply, error) {
	_, replies, err := c.requireUser(ctx, chatID, sess)
	if replies != nil || err != nil {
		return replies, err
	}

	users, err := c.users.Top(ctx, 10)
	if err != nil {
		return nil, err
	}

	return []Reply{{Text: formatTop(users)}}, nil
}

// formatProfile renders the /profile card. The average is the summed vote
// count across the user's jokes divided by how many they submitted, zero
// when they have none.
func formatProfile(user *models.User, rank, jokesSubmitted int, average float64) string {
	return fmt.Sprintf(
		"*%s*\nrank: %d. (%d points)\njokes submitted: %d (%.1f points/joke)",
		user.Username, rank, user.Score, jokesSubmitted, average,
	)
}

func formatTop(users []models.User) string {
	var sb strings.Builder
	for i, user := range users {
		fmt.Fprintf(&sb, "%d. %s - score: %d\n", i+1, user.Username, user.Score)
	}
	return sb.String()
}
