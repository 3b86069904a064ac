package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"watchq/internal/protocol"
	"watchq/internal/state"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Watchq.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetState retrieves the full application state.
func (c *Client) GetState() (*StateResponse, error) {
	var resp StateResponse
	if err := c.client.Call("Watchq.GetState", GetStateRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddEpisodes appends episodes to the queue.
func (c *Client) AddEpisodes(episodes []state.Episode) (*StateResponse, error) {
	var resp StateResponse
	req := AddEpisodesRequest{Episodes: episodes}
	if err := c.client.Call("Watchq.AddEpisodes", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RemoveEpisode removes one episode by id.
func (c *Client) RemoveEpisode(id string) (*StateResponse, error) {
	var resp StateResponse
	req := RemoveEpisodeRequest{ID: id}
	if err := c.client.Call("Watchq.RemoveEpisode", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReorderQueue rebuilds the queue in the given id order.
func (c *Client) ReorderQueue(ids []string) (*StateResponse, error) {
	var resp StateResponse
	req := ReorderQueueRequest{IDs: ids}
	if err := c.client.Call("Watchq.ReorderQueue", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SelectEpisode marks an episode as current; an empty id clears the selection.
func (c *Client) SelectEpisode(id string) (*StateResponse, error) {
	var resp StateResponse
	req := SelectEpisodeRequest{ID: id}
	if err := c.client.Call("Watchq.SelectEpisode", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetAudioLanguage assigns an audio language to one queued episode.
func (c *Client) SetAudioLanguage(id, audioLanguage string) (*StateResponse, error) {
	var resp StateResponse
	req := SetAudioLanguageRequest{ID: id, AudioLanguage: audioLanguage}
	if err := c.client.Call("Watchq.SetAudioLanguage", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateSettings applies a partial settings update.
func (c *Client) UpdateSettings(patch protocol.SettingsPatch) (*StateResponse, error) {
	var resp StateResponse
	req := UpdateSettingsRequest{Settings: patch}
	if err := c.client.Call("Watchq.UpdateSettings", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetQueue replaces the queue wholesale.
func (c *Client) SetQueue(queue []state.Episode) (*StateResponse, error) {
	var resp StateResponse
	req := SetQueueRequest{Queue: queue}
	if err := c.client.Call("Watchq.SetQueue", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ControlPlayback plays or pauses the active site tab.
func (c *Client) ControlPlayback(action string) (*ControlPlaybackResponse, error) {
	var resp ControlPlaybackResponse
	req := ControlPlaybackRequest{Action: action}
	if err := c.client.Call("Watchq.ControlPlayback", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DebugDump retrieves the diagnostics snapshot.
func (c *Client) DebugDump() (*DebugDumpResponse, error) {
	var resp DebugDumpResponse
	if err := c.client.Call("Watchq.DebugDump", DebugDumpRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
