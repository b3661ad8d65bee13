package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"xiangqi-server/internal/session"
	"xiangqi-server/pkg/xiangqidto"
)

const (
	redID   = "player-red"
	blackID = "player-black"
)

// newTestClient starts the full stack (miniredis, manager, fasthttp
// server) on an in-memory listener and returns an http.Client wired to
// it.
func newTestClient(t *testing.T) *http.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })

	mgr, err := session.NewManager(fmt.Sprintf("redis://%s/0", mr.Addr()), time.Hour, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: New(mgr, nil).Handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(context.Context, string, string) (net.Conn, error) {
				return ln.Dial()
			},
		},
	}
}

func doJSON(t *testing.T, c *http.Client, method, url string, body, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNotModified {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func createSession(t *testing.T, c *http.Client) *xiangqidto.SessionDTO {
	t.Helper()
	var dto xiangqidto.SessionDTO
	status := doJSON(t, c, http.MethodPost, "http://test/sessions", xiangqidto.CreateSessionRequest{
		Name:    "friendly",
		RedID:   redID,
		BlackID: blackID,
	}, &dto)
	if status != http.StatusCreated {
		t.Fatalf("create: status %d", status)
	}
	return &dto
}

func TestCreateAndFetchSession(t *testing.T) {
	c := newTestClient(t)
	dto := createSession(t, c)
	if dto.ID == "" || dto.Status != "ACTIVE" || dto.Turn != "red" || len(dto.Pieces) != 32 {
		t.Fatalf("unexpected session: %+v", dto)
	}

	var got xiangqidto.SessionDTO
	if status := doJSON(t, c, http.MethodGet, "http://test/sessions/"+dto.ID, nil, &got); status != http.StatusOK {
		t.Fatalf("get: status %d", status)
	}
	if got.ID != dto.ID || got.MoveCount != 0 {
		t.Fatalf("fetched session differs: %+v", got)
	}

	var derr xiangqidto.DomainError
	if status := doJSON(t, c, http.MethodGet, "http://test/sessions/no-such-id", nil, &derr); status != http.StatusNotFound {
		t.Fatalf("missing session: status %d", status)
	}
	if derr.Code != "session_not_found" {
		t.Fatalf("missing session: code %q", derr.Code)
	}
}

func TestPollingNotModified(t *testing.T) {
	c := newTestClient(t)
	dto := createSession(t, c)

	since := dto.UpdatedAt.UnixMilli()
	url := fmt.Sprintf("http://test/sessions/%s?since=%d", dto.ID, since)
	if status := doJSON(t, c, http.MethodGet, url, nil, nil); status != http.StatusNotModified {
		t.Fatalf("unchanged session: status %d, want 304", status)
	}

	// Keep the move's UpdatedAt in a later millisecond than the create.
	time.Sleep(5 * time.Millisecond)

	var moved xiangqidto.SessionDTO
	doJSON(t, c, http.MethodPost, "http://test/sessions/"+dto.ID+"/moves", xiangqidto.SubmitMoveRequest{
		PlayerID: redID,
		PieceID:  "red-cannon-1",
		To:       xiangqidto.PosDTO{File: 4, Rank: 7},
	}, &moved)

	var got xiangqidto.SessionDTO
	if status := doJSON(t, c, http.MethodGet, url, nil, &got); status != http.StatusOK {
		t.Fatalf("changed session: status %d, want 200", status)
	}
	if got.MoveCount != 1 {
		t.Fatalf("changed session: move count %d", got.MoveCount)
	}
}

func TestSubmitMoveAndRejections(t *testing.T) {
	c := newTestClient(t)
	dto := createSession(t, c)
	movesURL := "http://test/sessions/" + dto.ID + "/moves"

	var out xiangqidto.SessionDTO
	status := doJSON(t, c, http.MethodPost, movesURL, xiangqidto.SubmitMoveRequest{
		PlayerID: redID,
		PieceID:  "red-cannon-1",
		To:       xiangqidto.PosDTO{File: 4, Rank: 7},
	}, &out)
	if status != http.StatusOK || out.Turn != "black" || out.MoveCount != 1 {
		t.Fatalf("move: status=%d turn=%s count=%d", status, out.Turn, out.MoveCount)
	}

	var derr xiangqidto.DomainError
	status = doJSON(t, c, http.MethodPost, movesURL, xiangqidto.SubmitMoveRequest{
		PlayerID: redID,
		PieceID:  "red-cannon-2",
		To:       xiangqidto.PosDTO{File: 4, Rank: 7},
	}, &derr)
	if status != http.StatusConflict || derr.Code != "out_of_turn" {
		t.Fatalf("out of turn: status=%d code=%q", status, derr.Code)
	}

	status = doJSON(t, c, http.MethodPost, movesURL, xiangqidto.SubmitMoveRequest{
		PlayerID: blackID,
		PieceID:  "black-chariot-1",
		To:       xiangqidto.PosDTO{File: 0, Rank: 5},
	}, &derr)
	if status != http.StatusConflict || derr.Code != "illegal_destination" {
		t.Fatalf("illegal destination: status=%d code=%q", status, derr.Code)
	}
}

func TestLegalMovesEndpoint(t *testing.T) {
	c := newTestClient(t)
	dto := createSession(t, c)

	var resp xiangqidto.LegalMovesResponse
	url := "http://test/sessions/" + dto.ID + "/legal?piece=red-cannon-1"
	if status := doJSON(t, c, http.MethodGet, url, nil, &resp); status != http.StatusOK {
		t.Fatalf("legal: status %d", status)
	}
	if len(resp.Moves) != 12 {
		t.Fatalf("got %d legal moves, want 12", len(resp.Moves))
	}

	var derr xiangqidto.DomainError
	status := doJSON(t, c, http.MethodGet, "http://test/sessions/"+dto.ID+"/legal", nil, &derr)
	if status != http.StatusBadRequest {
		t.Fatalf("missing piece param: status %d", status)
	}
}

func TestResignAndFinishedConflict(t *testing.T) {
	c := newTestClient(t)
	dto := createSession(t, c)

	var out xiangqidto.SessionDTO
	status := doJSON(t, c, http.MethodPost, "http://test/sessions/"+dto.ID+"/resign",
		xiangqidto.PlayerRequest{PlayerID: blackID}, &out)
	if status != http.StatusOK || out.Status != "FINISHED" || out.Winner != "red" || out.Reason != "resign" {
		t.Fatalf("resign: status=%d session=%+v", status, out)
	}

	var derr xiangqidto.DomainError
	status = doJSON(t, c, http.MethodPost, "http://test/sessions/"+dto.ID+"/moves", xiangqidto.SubmitMoveRequest{
		PlayerID: redID,
		PieceID:  "red-cannon-1",
		To:       xiangqidto.PosDTO{File: 4, Rank: 7},
	}, &derr)
	if status != http.StatusConflict || derr.Code != "session_finished" {
		t.Fatalf("move after finish: status=%d code=%q", status, derr.Code)
	}
}

func TestDrawFlowOverHTTP(t *testing.T) {
	c := newTestClient(t)
	dto := createSession(t, c)
	drawURL := "http://test/sessions/" + dto.ID + "/draw"

	var out xiangqidto.SessionDTO
	if status := doJSON(t, c, http.MethodPost, drawURL, xiangqidto.PlayerRequest{PlayerID: redID}, &out); status != http.StatusOK {
		t.Fatalf("offer: status %d", status)
	}
	if out.Status != "ACTIVE" {
		t.Fatalf("offer finished the session: %+v", out)
	}

	if status := doJSON(t, c, http.MethodPost, drawURL, xiangqidto.PlayerRequest{PlayerID: blackID}, &out); status != http.StatusOK {
		t.Fatalf("accept: status %d", status)
	}
	if out.Status != "FINISHED" || out.Winner != "draw" || out.Reason != "draw-agreed" {
		t.Fatalf("accept: %+v", out)
	}
}

func TestBoardAndDescribeEndpoints(t *testing.T) {
	c := newTestClient(t)
	dto := createSession(t, c)

	doJSON(t, c, http.MethodPost, "http://test/sessions/"+dto.ID+"/moves", xiangqidto.SubmitMoveRequest{
		PlayerID: redID,
		PieceID:  "red-cannon-1",
		To:       xiangqidto.PosDTO{File: 4, Rank: 7},
	}, nil)

	var board xiangqidto.BoardResponse
	status := doJSON(t, c, http.MethodGet, "http://test/sessions/"+dto.ID+"/board?ply=0", nil, &board)
	if status != http.StatusOK || board.Ply != 0 || len(board.Pieces) != 32 {
		t.Fatalf("board: status=%d ply=%d pieces=%d", status, board.Ply, len(board.Pieces))
	}

	var desc xiangqidto.DescribeResponse
	status = doJSON(t, c, http.MethodGet, "http://test/sessions/"+dto.ID+"/describe", nil, &desc)
	if status != http.StatusOK || desc.Description == "" {
		t.Fatalf("describe: status=%d body=%+v", status, desc)
	}
	if desc.LastMove != "red cannon b7-e7" {
		t.Fatalf("describe last move: %q", desc.LastMove)
	}
}

func TestPlayerEndpoints(t *testing.T) {
	c := newTestClient(t)
	dto := createSession(t, c)

	var active xiangqidto.SessionDTO
	status := doJSON(t, c, http.MethodGet, "http://test/players/"+redID+"/active", nil, &active)
	if status != http.StatusOK || active.ID != dto.ID {
		t.Fatalf("active: status=%d id=%s", status, active.ID)
	}

	doJSON(t, c, http.MethodPost, "http://test/sessions/"+dto.ID+"/resign",
		xiangqidto.PlayerRequest{PlayerID: redID}, nil)

	var derr xiangqidto.DomainError
	status = doJSON(t, c, http.MethodGet, "http://test/players/"+redID+"/active", nil, &derr)
	if status != http.StatusNotFound || derr.Code != "no_active_session" {
		t.Fatalf("after finish: status=%d code=%q", status, derr.Code)
	}

	// No archive repository attached: the history list is empty, not an
	// error.
	var games []xiangqidto.ArchivedGameDTO
	if status := doJSON(t, c, http.MethodGet, "http://test/players/"+redID+"/games", nil, &games); status != http.StatusOK {
		t.Fatalf("games: status %d", status)
	}
	if len(games) != 0 {
		t.Fatalf("games without archive: %d entries", len(games))
	}
}

func TestUnknownRoute(t *testing.T) {
	c := newTestClient(t)
	var derr xiangqidto.DomainError
	if status := doJSON(t, c, http.MethodGet, "http://test/nope", nil, &derr); status != http.StatusNotFound {
		t.Fatalf("unknown route: status %d", status)
	}
}
