package coordinator

import (
	"encoding/json"
	"errors"
	"math/rand"
	"reflect"
	"strconv"
	"testing"

	"github.com/wricardo/bingo-server/game/bingo"
	"github.com/wricardo/bingo-server/game/room"
)

type sent struct {
	target  string
	event   string
	payload any
}

// recordingNotifier captures notifications and tracks group membership.
type recordingNotifier struct {
	unicasts   []sent
	broadcasts []sent
	groups     map[string]map[string]bool
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{groups: make(map[string]map[string]bool)}
}

func (n *recordingNotifier) Unicast(connID, event string, payload any) {
	n.unicasts = append(n.unicasts, sent{connID, event, payload})
}

func (n *recordingNotifier) Broadcast(roomID, event string, payload any) {
	n.broadcasts = append(n.broadcasts, sent{roomID, event, payload})
}

func (n *recordingNotifier) Join(connID, roomID string) {
	if n.groups[roomID] == nil {
		n.groups[roomID] = make(map[string]bool)
	}
	n.groups[roomID][connID] = true
}

func (n *recordingNotifier) lastUnicast(t *testing.T) sent {
	t.Helper()
	if len(n.unicasts) == 0 {
		t.Fatal("Expected a unicast, got none")
	}
	return n.unicasts[len(n.unicasts)-1]
}

func (n *recordingNotifier) lastBroadcast(t *testing.T) sent {
	t.Helper()
	if len(n.broadcasts) == 0 {
		t.Fatal("Expected a broadcast, got none")
	}
	return n.broadcasts[len(n.broadcasts)-1]
}

func (n *recordingNotifier) reset() {
	n.unicasts = nil
	n.broadcasts = nil
}

func setupCoordinator(rule bingo.WinRule) (*Coordinator, *room.Registry, *recordingNotifier) {
	registry := room.NewRegistry()
	notifier := newRecordingNotifier()
	c := New(registry, bingo.NewDrawer(rand.NewSource(1)), bingo.NewValidator(rule), notifier)
	return c, registry, notifier
}

func TestCreateRoom(t *testing.T) {
	c, registry, n := setupCoordinator(bingo.RuleFullCard)

	if err := c.CreateRoom("conn1", "A1"); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	if !n.groups["A1"]["conn1"] {
		t.Error("Expected creator to join the room group")
	}
	if got := n.lastUnicast(t); got.event != EventRoomCreated || got.payload != "A1" || got.target != "conn1" {
		t.Errorf("Unexpected unicast: %+v", got)
	}
	if got := n.lastBroadcast(t); got.event != EventSystemMessage || got.target != "A1" {
		t.Errorf("Unexpected broadcast: %+v", got)
	}

	snap, _ := registry.Get("A1")
	if snap.AdminID != "conn1" {
		t.Errorf("Expected conn1 as admin, got %s", snap.AdminID)
	}
}

func TestCreateRoomTwice(t *testing.T) {
	c, registry, n := setupCoordinator(bingo.RuleFullCard)

	c.CreateRoom("conn1", "B2")
	c.JoinRoom("conn1", "B2", "Alice")
	before, _ := registry.Get("B2")
	n.reset()

	err := c.CreateRoom("conn2", "B2")
	if !errors.Is(err, room.ErrRoomAlreadyExists) {
		t.Fatalf("Expected ErrRoomAlreadyExists, got %v", err)
	}

	got := n.lastUnicast(t)
	if got.event != EventErrorRoom || got.target != "conn2" {
		t.Errorf("Expected error-room to conn2, got %+v", got)
	}
	if len(n.broadcasts) != 0 {
		t.Errorf("Expected no broadcasts, got %d", len(n.broadcasts))
	}
	if n.groups["B2"]["conn2"] {
		t.Error("Expected conn2 not to join the group")
	}

	after, _ := registry.Get("B2")
	if after.AdminID != before.AdminID || !reflect.DeepEqual(after.Players, before.Players) {
		t.Errorf("Expected room unchanged, before %+v after %+v", before, after)
	}
}

func TestJoinRoom(t *testing.T) {
	c, _, n := setupCoordinator(bingo.RuleFullCard)

	t.Run("missing room", func(t *testing.T) {
		if err := c.JoinRoom("conn2", "nope", "Bob"); !errors.Is(err, room.ErrRoomNotFound) {
			t.Fatalf("Expected ErrRoomNotFound, got %v", err)
		}
		if got := n.lastUnicast(t); got.event != EventErrorRoom {
			t.Errorf("Expected error-room, got %s", got.event)
		}
	})

	c.CreateRoom("conn1", "A1")
	n.reset()

	if err := c.JoinRoom("conn2", "A1", "Bob"); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	if !n.groups["A1"]["conn2"] {
		t.Error("Expected player to join the room group")
	}
	got := n.lastBroadcast(t)
	if got.event != EventPlayerJoined || !reflect.DeepEqual(got.payload, []string{"Bob"}) {
		t.Errorf("Expected player-joined [Bob], got %+v", got)
	}
}

func TestRequestAdmin(t *testing.T) {
	c, registry, n := setupCoordinator(bingo.RuleFullCard)
	c.CreateRoom("conn1", "A1")

	for _, caller := range []string{"conn2", "conn1"} {
		n.reset()
		if err := c.RequestAdmin(caller, "A1"); !errors.Is(err, room.ErrAdminExists) {
			t.Errorf("Expected ErrAdminExists for %s, got %v", caller, err)
		}
		if got := n.lastUnicast(t); got.event != EventAdminDenied || got.target != caller {
			t.Errorf("Expected admin-denied to %s, got %+v", caller, got)
		}
		snap, _ := registry.Get("A1")
		if snap.AdminID != "conn1" {
			t.Errorf("Expected admin to stay conn1, got %s", snap.AdminID)
		}
	}

	t.Run("missing room is denied", func(t *testing.T) {
		n.reset()
		c.RequestAdmin("conn2", "nope")
		if got := n.lastUnicast(t); got.event != EventAdminDenied {
			t.Errorf("Expected admin-denied, got %s", got.event)
		}
	})

	t.Run("claim after admin leaves", func(t *testing.T) {
		c.JoinRoom("conn2", "A1", "Bob")
		c.HandleDisconnect("conn1", []string{"A1"})
		n.reset()

		if err := c.RequestAdmin("conn2", "A1"); err != nil {
			t.Fatalf("Expected claim to succeed, got %v", err)
		}
		if got := n.lastUnicast(t); got.event != EventAdminApproved || got.payload != nil {
			t.Errorf("Expected admin-approved, got %+v", got)
		}
		if got := n.lastBroadcast(t); got.event != EventSystemMessage {
			t.Errorf("Expected system-message broadcast, got %s", got.event)
		}
	})
}

func TestRequestAdminWithoutJoin(t *testing.T) {
	c, registry, n := setupCoordinator(bingo.RuleFullCard)
	c.CreateRoom("conn1", "A1")
	c.JoinRoom("conn2", "A1", "Bob")
	c.HandleDisconnect("conn1", []string{"A1"})

	// conn3 never joined A1
	if err := c.RequestAdmin("conn3", "A1"); err != nil {
		t.Fatalf("Expected claim to succeed, got %v", err)
	}
	if !n.groups["A1"]["conn3"] {
		t.Fatal("Expected new admin to be joined to the room group")
	}

	var joined []string
	for roomID, members := range n.groups {
		if members["conn3"] {
			joined = append(joined, roomID)
		}
	}
	c.HandleDisconnect("conn3", joined)

	snap, _ := registry.Get("A1")
	if snap.HasAdmin {
		t.Errorf("Expected admin to be released, got %s", snap.AdminID)
	}

	n.reset()
	if err := c.RequestAdmin("conn2", "A1"); err != nil {
		t.Errorf("Expected Bob's claim to succeed, got %v", err)
	}
	if got := n.lastUnicast(t); got.event != EventAdminApproved {
		t.Errorf("Expected admin-approved, got %s", got.event)
	}
}

func TestCallNumber(t *testing.T) {
	c, registry, n := setupCoordinator(bingo.RuleFullCard)
	c.CreateRoom("conn1", "A1")
	c.JoinRoom("conn2", "A1", "Bob")

	t.Run("non admin is rejected", func(t *testing.T) {
		n.reset()
		if err := c.CallNumber("conn2", "A1"); !errors.Is(err, room.ErrNotAdmin) {
			t.Fatalf("Expected ErrNotAdmin, got %v", err)
		}
		if got := n.lastUnicast(t); got.event != EventErrorMsg || got.target != "conn2" {
			t.Errorf("Expected error-msg to conn2, got %+v", got)
		}
		snap, _ := registry.Get("A1")
		if len(snap.Calls) != 0 {
			t.Errorf("Expected no calls, got %d", len(snap.Calls))
		}
	})

	t.Run("missing room", func(t *testing.T) {
		n.reset()
		if err := c.CallNumber("conn1", "nope"); !errors.Is(err, room.ErrRoomNotFound) {
			t.Fatalf("Expected ErrRoomNotFound, got %v", err)
		}
		if got := n.lastUnicast(t); got.event != EventErrorMsg {
			t.Errorf("Expected error-msg, got %s", got.event)
		}
	})

	t.Run("admin draws 75 unique numbers then exhausts", func(t *testing.T) {
		seen := make(map[int]bool)
		for i := 0; i < bingo.MaxNumber; i++ {
			n.reset()
			if err := c.CallNumber("conn1", "A1"); err != nil {
				t.Fatalf("Draw %d failed: %v", i+1, err)
			}
			got := n.lastBroadcast(t)
			call, ok := got.payload.(bingo.Call)
			if got.event != EventNumberCalled || !ok {
				t.Fatalf("Expected number-called with a Call, got %+v", got)
			}
			if seen[call.Number] {
				t.Fatalf("Number %d called twice", call.Number)
			}
			if letter, _ := bingo.LetterFor(call.Number); letter != call.Letter {
				t.Errorf("Expected letter %s for %d, got %s", letter, call.Number, call.Letter)
			}
			seen[call.Number] = true
		}

		n.reset()
		if err := c.CallNumber("conn1", "A1"); !errors.Is(err, bingo.ErrAllNumbersDrawn) {
			t.Fatalf("Expected ErrAllNumbersDrawn, got %v", err)
		}
		if got := n.lastUnicast(t); got.event != EventErrorMsg || got.payload != msgAllNumbersDrawn {
			t.Errorf("Expected exhaustion error-msg, got %+v", got)
		}
		if len(n.broadcasts) != 0 {
			t.Error("Expected no broadcast after exhaustion")
		}
	})
}

func fullCard(numbers ...int) bingo.Card {
	card := make(bingo.Card, bingo.CardSize)
	i := 0
	for r := range card {
		card[r] = make([]bingo.Cell, bingo.CardSize)
		for col := range card[r] {
			if i < len(numbers) {
				card[r][col] = bingo.NumberCell(numbers[i])
				i++
			} else {
				card[r][col] = bingo.FreeCell()
			}
		}
	}
	return card
}

func TestPlayerBingo(t *testing.T) {
	c, registry, n := setupCoordinator(bingo.RuleFullCard)
	c.CreateRoom("conn1", "A1")
	c.JoinRoom("conn2", "A1", "Bob")

	t.Run("missing room", func(t *testing.T) {
		n.reset()
		c.PlayerBingo("conn2", "nope", "Bob", fullCard())
		if got := n.lastUnicast(t); got.event != EventErrorRoom {
			t.Errorf("Expected error-room, got %s", got.event)
		}
	})

	t.Run("undrawn cell is invalid", func(t *testing.T) {
		n.reset()
		err := c.PlayerBingo("conn2", "A1", "Bob", fullCard(12))
		if !errors.Is(err, ErrInvalidClaim) {
			t.Fatalf("Expected ErrInvalidClaim, got %v", err)
		}
		if got := n.lastUnicast(t); got.event != EventInvalidBingo || got.target != "conn2" {
			t.Errorf("Expected invalid-bingo to conn2, got %+v", got)
		}
		if len(n.broadcasts) != 0 {
			t.Error("Expected losing claim not to be broadcast")
		}
	})

	t.Run("winning claim is broadcast", func(t *testing.T) {
		registry.RecordCall("A1", bingo.Call{Letter: bingo.LetterB, Number: 12})
		n.reset()

		if err := c.PlayerBingo("conn2", "A1", "Bob", fullCard(12)); err != nil {
			t.Fatalf("Expected winning claim, got %v", err)
		}
		got := n.lastBroadcast(t)
		if got.event != EventWinner || got.payload != "Bob" {
			t.Errorf("Expected winner Bob, got %+v", got)
		}
		snap, _ := registry.Get("A1")
		if !reflect.DeepEqual(snap.Winners, []string{"Bob"}) {
			t.Errorf("Expected winners [Bob], got %v", snap.Winners)
		}
	})

	t.Run("claim does not change draws", func(t *testing.T) {
		before, _ := registry.Get("A1")
		c.PlayerBingo("conn2", "A1", "Bob", fullCard(12))
		after, _ := registry.Get("A1")
		if len(before.Calls) != len(after.Calls) {
			t.Error("Expected claim to leave draws untouched")
		}
	})
}

func TestPlayerBingoLinesRule(t *testing.T) {
	c, registry, n := setupCoordinator(bingo.RuleLines)
	c.CreateRoom("conn1", "A1")

	// Top row 1..5, everything else undrawn numbers from 6 up.
	numbers := make([]int, 0, 25)
	for i := 1; i <= 25; i++ {
		numbers = append(numbers, i)
	}
	card := fullCard(numbers...)
	for _, num := range []int{1, 2, 3, 4, 5} {
		letter, _ := bingo.LetterFor(num)
		registry.RecordCall("A1", bingo.Call{Letter: letter, Number: num})
	}

	if err := c.PlayerBingo("conn1", "A1", "Alice", card); err != nil {
		t.Fatalf("Expected row to win under lines rule, got %v", err)
	}
	if got := n.lastBroadcast(t); got.event != EventWinner {
		t.Errorf("Expected winner broadcast, got %s", got.event)
	}
}

func TestMarkCell(t *testing.T) {
	c, registry, _ := setupCoordinator(bingo.RuleFullCard)
	c.CreateRoom("conn1", "A1")
	registry.RecordCall("A1", bingo.Call{Letter: bingo.LetterN, Number: 40})

	tests := []struct {
		name    string
		roomID  string
		number  int
		success bool
		message string
	}{
		{"called number", "A1", 40, true, ""},
		{"uncalled number", "A1", 41, false, msgNumberNotCalled},
		{"missing room", "nope", 40, false, "room does not exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.MarkCell("conn2", tt.roomID, tt.number)
			if got.Success != tt.success || got.Message != tt.message {
				t.Errorf("MarkCell() = %+v, expected {%v %q}", got, tt.success, tt.message)
			}
		})
	}
}

func TestDisconnect(t *testing.T) {
	c, registry, n := setupCoordinator(bingo.RuleFullCard)
	c.CreateRoom("conn1", "A1")
	c.JoinRoom("conn1", "A1", "Admin")
	c.JoinRoom("conn2", "A1", "Bob")
	c.CreateRoom("conn3", "Z9")
	c.JoinRoom("conn1", "Z9", "Admin")
	n.reset()

	c.HandleDisconnect("conn1", []string{"A1", "Z9", "gone"})

	snap, _ := registry.Get("A1")
	if snap.HasAdmin {
		t.Error("Expected A1 admin to be cleared")
	}
	if !reflect.DeepEqual(snap.PlayerNames(), []string{"Bob"}) {
		t.Errorf("Expected A1 players [Bob], got %v", snap.PlayerNames())
	}

	z9, _ := registry.Get("Z9")
	if z9.AdminID != "conn3" {
		t.Errorf("Expected Z9 admin to stay conn3, got %s", z9.AdminID)
	}

	expected := []sent{
		{"A1", EventSystemMessage, msgAdminLeft},
		{"A1", EventPlayerJoined, []string{"Bob"}},
		{"Z9", EventPlayerJoined, []string{}},
	}
	if !reflect.DeepEqual(n.broadcasts, expected) {
		t.Errorf("Unexpected broadcasts:\n got %+v\nwant %+v", n.broadcasts, expected)
	}
	if len(n.unicasts) != 0 {
		t.Errorf("Expected no unicasts on disconnect, got %d", len(n.unicasts))
	}
}

func TestEndToEndScenario(t *testing.T) {
	c, _, n := setupCoordinator(bingo.RuleFullCard)

	c.CreateRoom("conn1", "A1")
	c.JoinRoom("conn2", "A1", "Bob")

	n.reset()
	c.CallNumber("conn2", "A1")
	if got := n.lastUnicast(t); got.event != EventErrorMsg || got.target != "conn2" {
		t.Fatalf("Expected error-msg for non-admin, got %+v", got)
	}

	n.reset()
	if err := c.CallNumber("conn1", "A1"); err != nil {
		t.Fatalf("Admin call failed: %v", err)
	}
	call := n.lastBroadcast(t).payload.(bingo.Call)
	if call.Number < 1 || call.Number > 75 {
		t.Fatalf("Number out of range: %d", call.Number)
	}
	if letter, _ := bingo.LetterFor(call.Number); letter != call.Letter {
		t.Errorf("Expected letter %s, got %s", letter, call.Letter)
	}

	if res := c.MarkCell("conn2", "A1", call.Number); !res.Success {
		t.Errorf("Expected mark-cell success, got %+v", res)
	}
}

func TestHandleEvent(t *testing.T) {
	c, registry, n := setupCoordinator(bingo.RuleFullCard)

	raw := func(s string) json.RawMessage { return json.RawMessage(s) }

	if ack := c.HandleEvent("conn1", EventCreateRoom, raw(`{"roomId":"A1"}`)); ack != nil {
		t.Errorf("Expected no ack for create-room, got %v", ack)
	}
	if _, err := registry.Get("A1"); err != nil {
		t.Fatalf("Expected room A1 to exist: %v", err)
	}

	c.HandleEvent("conn2", EventJoinRoom, raw(`{"roomId":"A1","playerName":"Bob"}`))
	if got := n.lastBroadcast(t); got.event != EventPlayerJoined {
		t.Errorf("Expected player-joined, got %s", got.event)
	}

	c.HandleEvent("conn1", EventCallNumber, raw(`{"roomId":"A1"}`))
	call := n.lastBroadcast(t).payload.(bingo.Call)

	ack := c.HandleEvent("conn2", EventMarkCell, raw(`{"roomId":"A1","number":`+strconv.Itoa(call.Number)+`}`))
	if res, ok := ack.(MarkResult); !ok || !res.Success {
		t.Errorf("Expected successful MarkResult, got %#v", ack)
	}

	c.HandleEvent("conn2", EventPlayerBingo, raw(`{"roomId":"A1","playerName":"Bob","card":[[1]]}`))
	if got := n.lastUnicast(t); got.event != EventInvalidBingo {
		t.Errorf("Expected invalid-bingo for malformed card, got %s", got.event)
	}

	for _, card := range []string{`[["X"]]`, `"not a card"`} {
		n.reset()
		c.HandleEvent("conn2", EventPlayerBingo, raw(`{"roomId":"A1","playerName":"Bob","card":`+card+`}`))
		if got := n.lastUnicast(t); got.event != EventInvalidBingo {
			t.Errorf("Expected invalid-bingo for card %s, got %s", card, got.event)
		}
	}

	n.reset()
	c.HandleEvent("conn2", EventPlayerBingo, raw(`{"roomId":"nope","playerName":"Bob","card":[["X"]]}`))
	if got := n.lastUnicast(t); got.event != EventErrorRoom {
		t.Errorf("Expected error-room for unreadable card in missing room, got %s", got.event)
	}

	c.HandleEvent("conn2", EventRequestAdmin, raw(`{"roomId":"A1"}`))
	if got := n.lastUnicast(t); got.event != EventAdminDenied {
		t.Errorf("Expected admin-denied, got %s", got.event)
	}

	t.Run("bad payload", func(t *testing.T) {
		n.reset()
		c.HandleEvent("conn2", EventJoinRoom, raw(`"not an object"`))
		if got := n.lastUnicast(t); got.event != EventErrorMsg {
			t.Errorf("Expected error-msg, got %s", got.event)
		}

		ack := c.HandleEvent("conn2", EventMarkCell, nil)
		if res, ok := ack.(MarkResult); !ok || res.Success {
			t.Errorf("Expected failed MarkResult, got %#v", ack)
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		n.reset()
		c.HandleEvent("conn2", "dance", raw(`{}`))
		if got := n.lastUnicast(t); got.event != EventErrorMsg {
			t.Errorf("Expected error-msg, got %s", got.event)
		}
	})
}
