package mockserver

import (
	"encoding/json"
	"math/rand/v2"
	"time"
)

func (s *Server) handleCommand(req Request) any {
	if h, ok := s.opts.Handlers[req.Command]; ok {
		return h(req)
	}

	switch req.Command {
	case "ping", "logout":
		return map[string]any{"status": true}
	case "login":
		var args struct {
			UserID   string `json:"userId"`
			Password string `json:"password"`
		}
		if err := json.Unmarshal(req.Arguments, &args); err != nil || args.UserID == "" || args.Password == "" {
			return errorReply("BE005", "userPasswordCheck: Invalid login or password")
		}
		return map[string]any{"status": true, "streamSessionId": s.IssueToken()}
	case "getServerTime":
		now := time.Now()
		return map[string]any{
			"status": true,
			"returnData": map[string]any{
				"time":       now.UnixMilli(),
				"timeString": now.Format("Jan 2, 2006, 3:04:05 PM"),
			},
		}
	case "getVersion":
		return map[string]any{"status": true, "returnData": map[string]any{"version": "2.5.0"}}
	case "getSymbol":
		var args struct {
			Symbol string `json:"symbol"`
		}
		if err := json.Unmarshal(req.Arguments, &args); err != nil || args.Symbol == "" {
			return errorReply("BE115", "Invalid symbol")
		}
		return map[string]any{"status": true, "returnData": symbol(args.Symbol)}
	case "getAllSymbols":
		return map[string]any{
			"status":     true,
			"returnData": []any{symbol("EURUSD"), symbol("GOLD")},
		}
	case "getMarginLevel":
		return map[string]any{
			"status": true,
			"returnData": map[string]any{
				"balance":      10000.0,
				"credit":       0.0,
				"currency":     "USD",
				"equity":       10000.0,
				"margin":       0.0,
				"margin_free":  10000.0,
				"margin_level": 0.0,
			},
		}
	case "echo":
		// Returns the arguments untouched; tests use it to match replies
		// to requests.
		return map[string]any{"status": true, "returnData": req.Arguments}
	case "tradeTransaction":
		return map[string]any{"status": true, "returnData": map[string]any{"order": rand.IntN(1 << 20)}}
	case "tradeTransactionStatus":
		var args struct {
			Order int64 `json:"order"`
		}
		if err := json.Unmarshal(req.Arguments, &args); err != nil {
			return errorReply("BE118", "Invalid arguments")
		}
		return map[string]any{
			"status": true,
			"returnData": map[string]any{
				"customComment": "",
				"message":       nil,
				"order":         args.Order,
				"requestStatus": 3,
			},
		}
	default:
		return errorReply("EX009", "Unknown command: "+req.Command)
	}
}

func (s *Server) handleStreamCommand(sess *session, req Request) {
	switch req.Command {
	case "getTickPrices", "getKeepAlive", "getBalance":
		if !s.validToken(req.StreamSessionID) {
			_ = sess.writeJSON(errorReply("BE103", "Invalid stream session id"))
			return
		}
	}

	switch req.Command {
	case "getTickPrices":
		sess.subscribe("tickPrices:"+req.Symbol, s.opts.TickInterval, func() any {
			bid := 1 + rand.Float64()
			return map[string]any{
				"command": "tickPrices",
				"data": map[string]any{
					"symbol":    req.Symbol,
					"bid":       bid,
					"ask":       bid + 0.0002,
					"level":     0,
					"timestamp": time.Now().UnixMilli(),
				},
			}
		})
	case "stopTickPrices":
		sess.unsubscribe("tickPrices:" + req.Symbol)
	case "getKeepAlive":
		sess.subscribe("keepAlive", s.opts.KeepAliveInterval, func() any {
			return map[string]any{
				"command": "keepAlive",
				"data":    map[string]any{"timestamp": time.Now().UnixMilli()},
			}
		})
	case "stopKeepAlive":
		sess.unsubscribe("keepAlive")
	case "getBalance":
		_ = sess.writeJSON(map[string]any{
			"command": "balance",
			"data": map[string]any{
				"balance":     10000.0,
				"credit":      0.0,
				"equity":      10000.0,
				"margin":      0.0,
				"marginFree":  10000.0,
				"marginLevel": 0.0,
			},
		})
	}
}

func symbol(name string) map[string]any {
	bid := 1 + rand.Float64()
	return map[string]any{
		"symbol":       name,
		"description":  name + " mock instrument",
		"categoryName": "FX",
		"currency":     "USD",
		"bid":          bid,
		"ask":          bid + 0.0002,
		"lotMin":       0.01,
		"lotMax":       100.0,
		"lotStep":      0.01,
		"precision":    5,
		"time":         time.Now().UnixMilli(),
	}
}
