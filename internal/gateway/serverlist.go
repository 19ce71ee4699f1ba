package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/silkgo/internal/constants"
	"github.com/udisondev/silkgo/internal/protocol"
	"github.com/udisondev/silkgo/internal/protocol/packet"
)

// Farm: группа шардов.
type Farm struct {
	ID   byte
	Name string
}

// Shard: игровой сервер в списке.
type Shard struct {
	ID      uint16
	Name    string
	Current uint16
	Max     uint16
	State   byte
}

// Online reports whether the shard accepts logins.
func (s Shard) Online() bool {
	return s.State == 1
}

// ServerList is the body of 0xA101.
type ServerList struct {
	Farms  []Farm
	Shards []Shard
}

// RequestServerList sends 0x6101.
func RequestServerList(c Conn) error {
	if err := c.Write(protocol.NewPacket(constants.MsgServerListRequest, nil)); err != nil {
		return fmt.Errorf("requesting server list: %w", err)
	}
	return nil
}

// ParseServerList parses 0xA101: farm entries, then shard entries, each list
// prefixed entry by entry with 0x01 and terminated by 0x00.
func ParseServerList(payload []byte) (ServerList, error) {
	var list ServerList
	r := packet.NewReader(payload)

	for {
		more, err := r.ReadByte()
		if err != nil {
			return list, fmt.Errorf("%w: farm list: %w", ErrMalformed, err)
		}
		if more != 1 {
			break
		}

		var f Farm
		if f.ID, err = r.ReadByte(); err != nil {
			return list, fmt.Errorf("%w: farm id: %w", ErrMalformed, err)
		}
		if f.Name, err = r.ReadString16(); err != nil {
			return list, fmt.Errorf("%w: farm name: %w", ErrMalformed, err)
		}
		list.Farms = append(list.Farms, f)
	}

	for {
		more, err := r.ReadByte()
		if err != nil {
			return list, fmt.Errorf("%w: shard list: %w", ErrMalformed, err)
		}
		if more != 1 {
			break
		}

		s, err := readShard(r)
		if err != nil {
			return list, fmt.Errorf("%w: shard %d: %w", ErrMalformed, len(list.Shards), err)
		}
		list.Shards = append(list.Shards, s)
	}

	return list, nil
}

func readShard(r *packet.Reader) (Shard, error) {
	var (
		s   Shard
		err error
	)
	if s.ID, err = r.ReadUint16(); err != nil {
		return s, err
	}
	if s.Name, err = r.ReadString16(); err != nil {
		return s, err
	}
	if s.Current, err = r.ReadUint16(); err != nil {
		return s, err
	}
	if s.Max, err = r.ReadUint16(); err != nil {
		return s, err
	}
	if s.State, err = r.ReadByte(); err != nil {
		return s, err
	}
	return s, nil
}

// Poll requests the server list immediately and then every interval, passing each
// parsed list to handle. Other packets are dropped. It returns nil when ctx is
// canceled and the connection error otherwise.
func Poll(ctx context.Context, c Conn, interval time.Duration, handle func(ServerList)) error {
	if interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", interval)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if err := RequestServerList(c); err != nil {
				return err
			}
			select {
			case <-ticker.C:
			case <-gctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		for {
			p, err := c.Read(gctx)
			if err != nil {
				return err
			}
			if p.ID != constants.MsgServerListResponse {
				slog.Debug("dropping packet while polling server list", "packet", p)
				continue
			}

			list, err := ParseServerList(p.Payload)
			if err != nil {
				return err
			}
			handle(list)
		}
	})

	err := g.Wait()
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}
