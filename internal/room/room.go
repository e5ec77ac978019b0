// internal/room/room.go
package room

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lunaveil/seance/internal/cache"
	"github.com/lunaveil/seance/internal/models"
)

// Phase describes the stage a room's séance cycle is in.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseFocus   Phase = "focus"
	PhaseVoting  Phase = "voting"
	PhaseSession Phase = "session"
)

// FocusMessage is a candidate question submitted during the focus phase.
type FocusMessage struct {
	ID       uuid.UUID `json:"id"`
	UID      uuid.UUID `json:"uid"`
	Username string    `json:"username"`
	Message  string    `json:"message"`
}

// Room is the authoritative state of one shared séance session. The server is
// the sole writer: participants send commands, the room mutates under its
// mutex, broadcasts the result, and then re-evaluates the phase triggers
// against the current participant set. That re-evaluation happens after every
// mutation, so a quorum target always reflects who is present right now.
type Room struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsPublic  bool      `json:"isPublic"`
	CreatedAt time.Time `json:"createdAt"`

	// HostUID identifies the privileged participant who may start focus
	// rounds and banish the room. Always a member of Connections while
	// anyone is present.
	HostUID uuid.UUID `json:"hostUID"`

	// Connections holds the live participants, keyed by uid.
	Connections map[uuid.UUID]*Connection `json:"-"`

	Phase Phase `json:"phase"`

	// FocusMessages keeps submission order; ties in the vote tally break
	// toward the earliest-submitted candidate.
	FocusMessages []*FocusMessage `json:"-"`
	// Votes maps voter uid -> focus message id. Using the voter as the key
	// makes a second vote from the same uid structurally impossible.
	Votes map[uuid.UUID]uuid.UUID `json:"-"`
	// Ready marks participants waiting for an ambient (no-question) session.
	Ready map[uuid.UUID]bool `json:"-"`

	// SessionQuestion is the winning question of the current session, empty
	// for ambient sessions.
	SessionQuestion string `json:"-"`
	// GuidingMessage is the full answer being revealed; GuidingIndex is how
	// many characters of it have been revealed so far.
	GuidingMessage string `json:"-"`
	GuidingIndex   int    `json:"-"`
	// CurrentMessage is the last completed answer, shown between sessions.
	CurrentMessage string `json:"-"`

	// OnEmpty is called once when the room closes, e.g. via
	//   r.OnEmpty = func(id uuid.UUID) { store.DeleteRoom(id) }
	OnEmpty func(roomID uuid.UUID) `json:"-"`

	cfg      Config
	rng      *rand.Rand
	farewell bool // current session drew the farewell response

	revealTimer   *time.Timer
	farewellTimer *time.Timer
	closed        bool
	eventIndex    int

	// Mu protects all mutable state above.
	Mu sync.Mutex `json:"-"`
}

// NewRoom creates an idle room hosted by creator. The creator still has to
// join over the websocket to become a participant.
func NewRoom(name string, isPublic bool, creator models.Participant, cfg Config) (*Room, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	id, _ := uuid.NewRandom()
	r := &Room{
		ID:          id,
		Name:        name,
		IsPublic:    isPublic,
		CreatedAt:   time.Now(),
		HostUID:     creator.UID,
		Connections: make(map[uuid.UUID]*Connection),
		Phase:       PhaseIdle,
		Votes:       make(map[uuid.UUID]uuid.UUID),
		Ready:       make(map[uuid.UUID]bool),
		cfg:         cfg,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	r.logEvent(creator.UID, "room_created", map[string]interface{}{
		"name":     name,
		"isPublic": isPublic,
	})
	return r, nil
}

// AddConnection joins a participant. A reconnect with the same uid replaces
// the previous connection. The joiner receives a full private state snapshot
// and everyone is notified.
func (r *Room) AddConnection(conn *Connection) error {
	r.Mu.Lock()

	if r.closed {
		r.Mu.Unlock()
		return ErrRoomClosed
	}

	uid := conn.Participant.UID
	if old, ok := r.Connections[uid]; ok && old != conn {
		log.Printf("Room %s: participant %s is re-establishing connection.", r.ID, uid)
		go closeConnection(old)
	}
	r.Connections[uid] = conn

	// A room whose host never connected (or whose host record went stale)
	// adopts the first joiner as host so the host is always present.
	if _, hostPresent := r.Connections[r.HostUID]; !hostPresent {
		r.HostUID = uid
	}

	log.Printf("Room %s: participant %s (%s) joined.", r.ID, uid, conn.Participant.Username)
	r.logEvent(uid, "participant_join", map[string]interface{}{"username": conn.Participant.Username})

	conn.Write(r.statePayloadUnsafe(uid))
	r.broadcastAllUnsafe(map[string]interface{}{
		"type":         "room_update",
		"user_join":    uid.String(),
		"username":     conn.Participant.Username,
		"host_uid":     r.HostUID.String(),
		"participants": r.participantsPayloadUnsafe(),
	})

	r.Mu.Unlock()
	return nil
}

// RemoveParticipant handles a leave or disconnect. A force leave closes the
// room unconditionally. Otherwise the participant's vote, focus message and
// ready mark are withdrawn with them, the host is re-elected if needed, and
// the phase triggers are re-evaluated against the smaller quorum. The last
// participant out closes the room.
func (r *Room) RemoveParticipant(uid uuid.UUID, force bool) {
	r.removeParticipant(uid, nil, force)
}

// RemoveConnection removes a participant on behalf of a specific connection.
// If the participant has since reconnected and the uid maps to a fresh
// connection, the call is a no-op: a dying handler must not evict its
// successor. Handlers cleaning up after their read pump exits use this
// instead of RemoveParticipant.
func (r *Room) RemoveConnection(conn *Connection, force bool) {
	r.removeParticipant(conn.Participant.UID, conn, force)
}

// removeParticipant is the shared removal path. A non-nil owner restricts the
// removal to the case where owner is still the participant's live connection.
func (r *Room) removeParticipant(uid uuid.UUID, owner *Connection, force bool) {
	r.Mu.Lock()
	if r.closed {
		r.Mu.Unlock()
		return
	}

	if owner != nil {
		if cur, ok := r.Connections[uid]; !ok || cur != owner {
			r.Mu.Unlock()
			log.Printf("Room %s: ignoring stale removal for participant %s whose connection was replaced or already removed.", r.ID, uid)
			return
		}
	}

	if force {
		after := r.closeRoomUnsafe("the circle was broken")
		r.Mu.Unlock()
		if after != nil {
			after()
		}
		return
	}

	conn, ok := r.Connections[uid]
	if !ok {
		r.Mu.Unlock()
		log.Printf("Room %s: attempted to remove participant %s who was not connected.", r.ID, uid)
		return
	}

	log.Printf("Room %s: removing participant %s.", r.ID, uid)
	go closeConnection(conn)
	delete(r.Connections, uid)
	r.withdrawContributionsUnsafe(uid)
	r.logEvent(uid, "participant_leave", map[string]interface{}{"username": conn.Participant.Username})

	if len(r.Connections) == 0 {
		after := r.closeRoomUnsafe("")
		r.Mu.Unlock()
		if after != nil {
			after()
		}
		return
	}

	if r.HostUID == uid {
		r.reassignHostUnsafe()
	}

	r.broadcastAllUnsafe(map[string]interface{}{
		"type":         "room_update",
		"user_left":    uid.String(),
		"username":     conn.Participant.Username,
		"host_uid":     r.HostUID.String(),
		"participants": r.participantsPayloadUnsafe(),
	})
	r.evaluatePhaseUnsafe()
	r.Mu.Unlock()
}

// StartFocus begins a question round. Host only, idle only.
func (r *Room) StartFocus(uid uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	if _, ok := r.Connections[uid]; !ok {
		return ErrNotParticipant
	}
	if uid != r.HostUID {
		return ErrNotHost
	}
	if r.Phase != PhaseIdle {
		return ErrWrongPhase
	}

	r.Phase = PhaseFocus
	r.FocusMessages = nil
	r.Votes = make(map[uuid.UUID]uuid.UUID)
	r.Ready = make(map[uuid.UUID]bool)
	r.logEvent(uid, "phase_change", map[string]interface{}{"phase": string(PhaseFocus)})
	r.broadcastAllUnsafe(map[string]interface{}{
		"type":   "phase_update",
		"phase":  string(PhaseFocus),
		"needed": len(r.Connections),
	})
	return nil
}

// SubmitFocusMessage records a participant's candidate question during the
// focus phase. One per participant per cycle; once everyone present has
// submitted, the room advances to voting.
func (r *Room) SubmitFocusMessage(uid uuid.UUID, text string) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	conn, ok := r.Connections[uid]
	if !ok {
		return ErrNotParticipant
	}
	if r.Phase != PhaseFocus {
		return ErrWrongPhase
	}
	for _, fm := range r.FocusMessages {
		if fm.UID == uid {
			return ErrAlreadySubmitted
		}
	}

	id, _ := uuid.NewRandom()
	fm := &FocusMessage{
		ID:       id,
		UID:      uid,
		Username: conn.Participant.Username,
		Message:  text,
	}
	r.FocusMessages = append(r.FocusMessages, fm)

	r.broadcastAllUnsafe(map[string]interface{}{
		"type":      "focus_update",
		"message":   fm,
		"submitted": len(r.FocusMessages),
		"needed":    len(r.Connections),
	})
	r.evaluatePhaseUnsafe()
	return nil
}

// CastVote records a participant's single vote for a focus message. Once
// everyone present has voted, the winning question opens a session.
func (r *Room) CastVote(uid uuid.UUID, messageID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	if _, ok := r.Connections[uid]; !ok {
		return ErrNotParticipant
	}
	if r.Phase != PhaseVoting {
		return ErrWrongPhase
	}
	if _, voted := r.Votes[uid]; voted {
		return ErrAlreadyVoted
	}
	if r.findFocusMessageUnsafe(messageID) == nil {
		return ErrUnknownMessage
	}

	r.Votes[uid] = messageID
	r.broadcastAllUnsafe(map[string]interface{}{
		"type":    "vote_update",
		"tallies": r.voteTalliesUnsafe(),
		"cast":    len(r.Votes),
		"needed":  len(r.Connections),
	})
	r.evaluatePhaseUnsafe()
	return nil
}

// MarkReady flags a participant for the ambient (no-question) session path.
// When every participant present is ready, a session starts directly.
func (r *Room) MarkReady(uid uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	if _, ok := r.Connections[uid]; !ok {
		return ErrNotParticipant
	}
	if r.Phase != PhaseIdle {
		return ErrWrongPhase
	}
	if r.Ready[uid] {
		return nil // already ready, no change
	}

	r.Ready[uid] = true
	r.broadcastAllUnsafe(map[string]interface{}{
		"type":    "ready_update",
		"user_id": uid.String(),
		"ready":   len(r.Ready),
		"needed":  len(r.Connections),
	})
	r.evaluatePhaseUnsafe()
	return nil
}

// BroadcastChat relays a chat line from a participant.
func (r *Room) BroadcastChat(uid uuid.UUID, msg string) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	conn, ok := r.Connections[uid]
	if !ok {
		log.Printf("Room %s: cannot broadcast chat for disconnected participant %s", r.ID, uid)
		return
	}
	r.broadcastAllUnsafe(map[string]interface{}{
		"type":     "chat",
		"user_id":  uid.String(),
		"username": conn.Participant.Username,
		"msg":      msg,
		"ts":       time.Now().Unix(),
	})
}

// Banish closes the room on the host's command.
func (r *Room) Banish(uid uuid.UUID) error {
	r.Mu.Lock()
	if r.closed {
		r.Mu.Unlock()
		return ErrRoomClosed
	}
	if uid != r.HostUID {
		r.Mu.Unlock()
		return ErrNotHost
	}
	after := r.closeRoomUnsafe("the host has closed the circle")
	r.Mu.Unlock()
	if after != nil {
		after()
	}
	return nil
}

// CloseRoom shuts the room down with the given reason. Idempotent.
func (r *Room) CloseRoom(reason string) {
	r.Mu.Lock()
	after := r.closeRoomUnsafe(reason)
	r.Mu.Unlock()
	if after != nil {
		after()
	}
}

// Closed reports whether the room has shut down.
func (r *Room) Closed() bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.closed
}

// --- internal helpers; all assume Mu is held ---

// evaluatePhaseUnsafe applies the automatic phase transitions. Every quorum
// check recomputes against the live participant count, never a cached total.
func (r *Room) evaluatePhaseUnsafe() {
	if r.closed || len(r.Connections) == 0 {
		return
	}
	switch r.Phase {
	case PhaseIdle:
		if r.allReadyUnsafe() {
			r.beginSessionUnsafe("")
		}
	case PhaseFocus:
		if len(r.FocusMessages) >= len(r.Connections) {
			r.beginVotingUnsafe()
		}
	case PhaseVoting:
		if len(r.Votes) >= len(r.Connections) {
			winner := r.tallyWinnerUnsafe()
			if winner != nil {
				r.beginSessionUnsafe(winner.Message)
			}
		}
	}
}

func (r *Room) allReadyUnsafe() bool {
	if len(r.Ready) == 0 {
		return false
	}
	for uid := range r.Connections {
		if !r.Ready[uid] {
			return false
		}
	}
	return true
}

func (r *Room) beginVotingUnsafe() {
	r.Phase = PhaseVoting
	r.logEvent(uuid.Nil, "phase_change", map[string]interface{}{"phase": string(PhaseVoting)})
	r.broadcastAllUnsafe(map[string]interface{}{
		"type":           "phase_update",
		"phase":          string(PhaseVoting),
		"focus_messages": r.FocusMessages,
		"needed":         len(r.Connections),
	})
}

// tallyWinnerUnsafe returns the focus message with the most votes. Iterating
// FocusMessages in submission order makes the tie-break deterministic:
// earliest submitted wins.
func (r *Room) tallyWinnerUnsafe() *FocusMessage {
	counts := make(map[uuid.UUID]int, len(r.FocusMessages))
	for _, target := range r.Votes {
		counts[target]++
	}
	var winner *FocusMessage
	best := -1
	for _, fm := range r.FocusMessages {
		if counts[fm.ID] > best {
			best = counts[fm.ID]
			winner = fm
		}
	}
	return winner
}

// beginSessionUnsafe selects the spirit response and opens the reveal.
func (r *Room) beginSessionUnsafe(question string) {
	resp, farewell := pickResponse(r.rng, r.CurrentMessage, r.cfg.FarewellPercent)
	r.SessionQuestion = question
	r.GuidingMessage = resp
	r.GuidingIndex = 0
	r.farewell = farewell
	r.Phase = PhaseSession

	r.logEvent(uuid.Nil, "session_start", map[string]interface{}{
		"question": question,
		"answer":   resp,
		"farewell": farewell,
	})
	r.broadcastAllUnsafe(map[string]interface{}{
		"type":            "phase_update",
		"phase":           string(PhaseSession),
		"question":        question,
		"guiding_message": resp,
		"length":          len([]rune(resp)),
		"target":          RestPosition,
	})
	r.scheduleRevealUnsafe()
}

// scheduleRevealUnsafe arms the next per-character reveal tick.
func (r *Room) scheduleRevealUnsafe() {
	var timer *time.Timer
	timer = time.AfterFunc(r.cfg.RevealDelay, func() {
		r.revealTick(timer)
	})
	r.revealTimer = timer
}

// revealTick advances the reveal cursor by one character and broadcasts the
// planchette target for it. A stale timer (room closed, phase moved on, or a
// newer timer armed) is ignored.
func (r *Room) revealTick(timer *time.Timer) {
	r.Mu.Lock()
	if r.closed || r.Phase != PhaseSession || r.revealTimer != timer {
		r.Mu.Unlock()
		return
	}
	r.revealTimer = nil

	runes := []rune(r.GuidingMessage)
	if r.GuidingIndex < len(runes) {
		r.GuidingIndex++
	}
	idx := r.GuidingIndex
	from := TargetFor(r.GuidingMessage, idx-1)
	target := TargetFor(r.GuidingMessage, idx)
	r.broadcastAllUnsafe(map[string]interface{}{
		"type":     "reveal",
		"index":    idx,
		"char":     string(runes[idx-1]),
		"revealed": string(runes[:idx]),
		"from":     from,
		"target":   target,
		"path":     GlidePath(from, target, revealPathSteps),
	})

	if idx < len(runes) {
		r.scheduleRevealUnsafe()
		r.Mu.Unlock()
		return
	}
	r.completeSessionUnsafe()
	r.Mu.Unlock()
}

// completeSessionUnsafe archives the revealed answer and resets the cycle.
// A farewell session arms the self-destruct timer instead of carrying on.
func (r *Room) completeSessionUnsafe() {
	completed := r.GuidingMessage
	farewell := r.farewell
	question := r.SessionQuestion

	r.CurrentMessage = completed
	r.GuidingMessage = ""
	r.GuidingIndex = 0
	r.SessionQuestion = ""
	r.farewell = false
	r.FocusMessages = nil
	r.Votes = make(map[uuid.UUID]uuid.UUID)
	r.Ready = make(map[uuid.UUID]bool)
	r.Phase = PhaseIdle

	r.logEvent(uuid.Nil, "session_complete", map[string]interface{}{
		"room_name":    r.Name,
		"question":     question,
		"answer":       completed,
		"farewell":     farewell,
		"participants": len(r.Connections),
	})
	r.broadcastAllUnsafe(map[string]interface{}{
		"type":            "session_complete",
		"phase":           string(PhaseIdle),
		"current_message": completed,
		"farewell":        farewell,
	})

	if farewell {
		log.Printf("Room %s: farewell revealed, closing in %s.", r.ID, r.cfg.FarewellCloseDelay)
		r.farewellTimer = time.AfterFunc(r.cfg.FarewellCloseDelay, func() {
			r.CloseRoom("the spirits have said goodbye")
		})
	}
}

// withdrawContributionsUnsafe removes a departed participant's vote, focus
// message and ready mark so totals never exceed the live participant count.
func (r *Room) withdrawContributionsUnsafe(uid uuid.UUID) {
	delete(r.Ready, uid)
	delete(r.Votes, uid)
	for i, fm := range r.FocusMessages {
		if fm.UID == uid {
			r.FocusMessages = append(r.FocusMessages[:i], r.FocusMessages[i+1:]...)
			// Votes pointing at the withdrawn message are void too.
			for voter, target := range r.Votes {
				if target == fm.ID {
					delete(r.Votes, voter)
				}
			}
			break
		}
	}
}

// reassignHostUnsafe hands host authority to the participant with the lowest
// uid. Any remaining participant would do; sorting makes the election
// deterministic per remaining set so concurrent observers agree.
func (r *Room) reassignHostUnsafe() {
	var next uuid.UUID
	first := true
	for uid := range r.Connections {
		if first || uid.String() < next.String() {
			next = uid
			first = false
		}
	}
	if first {
		return // nobody left; caller closes the room
	}
	r.HostUID = next
	log.Printf("Room %s: host authority transferred to %s.", r.ID, next)
	r.logEvent(next, "host_change", nil)
	r.broadcastAllUnsafe(map[string]interface{}{
		"type":     "host_change",
		"host_uid": next.String(),
	})
}

// closeRoomUnsafe tears the room down and returns the OnEmpty callback (if
// any) for the caller to invoke after releasing the lock.
func (r *Room) closeRoomUnsafe(reason string) func() {
	if r.closed {
		return nil
	}
	r.closed = true

	if r.revealTimer != nil {
		r.revealTimer.Stop()
		r.revealTimer = nil
	}
	if r.farewellTimer != nil {
		r.farewellTimer.Stop()
		r.farewellTimer = nil
	}

	if reason != "" {
		r.broadcastAllUnsafe(map[string]interface{}{
			"type":   "room_closed",
			"reason": reason,
		})
	}
	for uid, conn := range r.Connections {
		go closeConnection(conn)
		delete(r.Connections, uid)
	}
	log.Printf("Room %s closed (%s).", r.ID, reason)
	r.logEvent(uuid.Nil, "room_closed", map[string]interface{}{"reason": reason})

	cb := r.OnEmpty
	if cb == nil {
		return nil
	}
	id := r.ID
	return func() { cb(id) }
}

func (r *Room) findFocusMessageUnsafe(id uuid.UUID) *FocusMessage {
	for _, fm := range r.FocusMessages {
		if fm.ID == id {
			return fm
		}
	}
	return nil
}

func (r *Room) voteTalliesUnsafe() map[string]int {
	tallies := make(map[string]int, len(r.FocusMessages))
	for _, target := range r.Votes {
		tallies[target.String()]++
	}
	return tallies
}

// broadcastAllUnsafe sends msg to every connected participant. Writes are
// non-blocking, so holding the lock is safe.
func (r *Room) broadcastAllUnsafe(msg map[string]interface{}) {
	for _, conn := range r.Connections {
		conn.Write(msg)
	}
}

func (r *Room) participantsPayloadUnsafe() []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(r.Connections))
	for uid, conn := range r.Connections {
		out = append(out, map[string]interface{}{
			"uid":         uid.String(),
			"username":    conn.Participant.Username,
			"avatar_seed": conn.Participant.AvatarSeed,
			"is_host":     uid == r.HostUID,
		})
	}
	return out
}

// statePayloadUnsafe builds the full private snapshot sent to a joiner.
func (r *Room) statePayloadUnsafe(uid uuid.UUID) map[string]interface{} {
	return map[string]interface{}{
		"type":            "room_state",
		"room_id":         r.ID.String(),
		"name":            r.Name,
		"is_public":       r.IsPublic,
		"host_uid":        r.HostUID.String(),
		"your_uid":        uid.String(),
		"your_is_host":    uid == r.HostUID,
		"phase":           string(r.Phase),
		"participants":    r.participantsPayloadUnsafe(),
		"focus_messages":  r.FocusMessages,
		"tallies":         r.voteTalliesUnsafe(),
		"ready":           len(r.Ready),
		"guiding_message": r.GuidingMessage,
		"guiding_index":   r.GuidingIndex,
		"current_message": r.CurrentMessage,
	}
}

// logEvent publishes a transcript record to the Redis queue asynchronously.
func (r *Room) logEvent(actorUID uuid.UUID, eventType string, payload map[string]interface{}) {
	r.eventIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.SeanceEventRecord{
		RoomID:     r.ID,
		EventIndex: r.eventIndex,
		ActorUID:   actorUID,
		EventType:  eventType,
		Payload:    payload,
		Timestamp:  time.Now().UnixMilli(),
	}
	go func(rec cache.SeanceEventRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if cache.Rdb == nil {
			// Redis is optional; transcripts are best-effort.
			return
		}
		if err := cache.PublishSeanceEvent(ctx, rec); err != nil {
			log.Printf("Error publishing seance event %d for room %s: %v", rec.EventIndex, r.ID, err)
		}
	}(record)
}

// closeConnection shuts a participant connection's outgoing channel and
// cancels its context. Runs in its own goroutine so a blocked writer cannot
// stall room mutation.
func closeConnection(conn *Connection) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Recovered from panic closing OutChan for participant %s: %v", conn.Participant.UID, rec)
		}
	}()
	close(conn.OutChan)
	if conn.Cancel != nil {
		conn.Cancel()
	}
}
