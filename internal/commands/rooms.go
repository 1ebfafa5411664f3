package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JaykaiDos/signaling-server/internal/relay"
	"github.com/JaykaiDos/signaling-server/internal/ui"
)

type roomsResponse struct {
	Rooms       []relay.RoomInfo `json:"rooms"`
	Connections int              `json:"connections"`
}

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List open rooms on the relay",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
		defer cancel()

		resp, err := adminRequest(ctx, http.MethodGet, cfg.HTTPBase()+"/rooms", "")
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return WrapError("list rooms", ErrAdminRequest, statusDetails(resp))
		}
		var listing roomsResponse
		if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
			return NewError("decode rooms", err)
		}

		if len(listing.Rooms) == 0 {
			ui.PrintInfof("no open rooms (%d connections)", listing.Connections)
			return nil
		}
		fmt.Fprintln(ui.Output, ui.RenderRoomsTable(listing.Rooms, listing.Connections))
		return nil
	},
}

var roomsCloseCmd = &cobra.Command{
	Use:   "close <room>",
	Short: "Close a room; its occupants receive room-closed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roomID := args[0]

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
		defer cancel()

		resp, err := adminRequest(ctx, http.MethodDelete, cfg.HTTPBase()+"/rooms/"+url.PathEscape(roomID), cfg.AdminToken)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusNoContent, http.StatusOK:
			ui.PrintSuccessf("room %s closed", roomID)
			return nil
		case http.StatusNotFound:
			return WrapError("close room", ErrRoomGone, roomID)
		case http.StatusUnauthorized, http.StatusForbidden:
			return WrapError("close room", ErrAdminDenied, statusDetails(resp))
		}
		return WrapError("close room", ErrAdminRequest, statusDetails(resp))
	},
}

func adminRequest(ctx context.Context, method, target, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, NewError("build request", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, NewError("reach relay", err)
	}
	return resp, nil
}

func statusDetails(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return strings.TrimSpace(fmt.Sprintf("%s %s", resp.Status, body))
}

func init() {
	rootCmd.AddCommand(roomsCmd)
	roomsCmd.AddCommand(roomsCloseCmd)
}
