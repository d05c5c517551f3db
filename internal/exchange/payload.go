package exchange

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Xtley001/front-run-vanilla/internal/model"
	"github.com/Xtley001/front-run-vanilla/pkg/exception"
)

// combinedStreamEnvelope wraps every message on a combined stream
// connection.
type combinedStreamEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type depthUpdatePayload struct {
	EventType     string      `json:"e"`
	EventTime     int64       `json:"E"`
	Symbol        string      `json:"s"`
	FirstUpdateID int64       `json:"U"`
	FinalUpdateID int64       `json:"u"`
	Bids          [][2]string `json:"b"`
	Asks          [][2]string `json:"a"`
}

type aggTradePayload struct {
	EventType    string `json:"e"`
	EventTime    int64  `json:"E"`
	Symbol       string `json:"s"`
	AggTradeID   int64  `json:"a"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

// eventTypeProbe peeks at the "e" field to dispatch a combined stream
// message.
type eventTypeProbe struct {
	EventType string `json:"e"`
}

const (
	eventTypeDepthUpdate = "depthUpdate"
	eventTypeAggTrade    = "aggTrade"
)

// parseMarketMessage decodes one raw websocket frame into a MarketEvent.
// Unknown event types return nil with no error and are skipped upstream.
func parseMarketMessage(raw []byte, recv time.Time) (*model.MarketEvent, error) {
	var env combinedStreamEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	data := env.Data
	if len(data) == 0 {
		// raw stream connection, no envelope
		data = raw
	}

	var probe eventTypeProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	switch probe.EventType {
	case eventTypeDepthUpdate:
		var p depthUpdatePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		depth, err := p.toDepthUpdate()
		if err != nil {
			return nil, err
		}
		return &model.MarketEvent{Kind: model.EventDepthUpdate, Recv: recv, Depth: depth}, nil

	case eventTypeAggTrade:
		var p aggTradePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		trade, err := p.toTrade()
		if err != nil {
			return nil, err
		}
		return &model.MarketEvent{Kind: model.EventTrade, Recv: recv, Trade: trade}, nil

	default:
		return nil, nil
	}
}

func (p *depthUpdatePayload) toDepthUpdate() (*model.DepthUpdate, error) {
	bids, err := parseLevels(p.Bids)
	if err != nil {
		return nil, err
	}
	asks, err := parseLevels(p.Asks)
	if err != nil {
		return nil, err
	}
	return &model.DepthUpdate{
		Symbol:        p.Symbol,
		EventTime:     time.UnixMilli(p.EventTime),
		FirstUpdateID: p.FirstUpdateID,
		FinalUpdateID: p.FinalUpdateID,
		Bids:          bids,
		Asks:          asks,
	}, nil
}

func (p *aggTradePayload) toTrade() (*model.Trade, error) {
	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		return nil, exception.ErrExchangeBadPayload.With("field", "p").With("value", p.Price)
	}
	quantity, err := decimal.NewFromString(p.Quantity)
	if err != nil {
		return nil, exception.ErrExchangeBadPayload.With("field", "q").With("value", p.Quantity)
	}

	side := model.SideBuy
	if p.IsBuyerMaker {
		side = model.SideSell
	}

	return &model.Trade{
		ID:           p.AggTradeID,
		Price:        price,
		Quantity:     quantity,
		Side:         side,
		Timestamp:    time.UnixMilli(p.TradeTime),
		IsBuyerMaker: p.IsBuyerMaker,
	}, nil
}

func parseLevels(raw [][2]string) ([]model.PriceLevel, error) {
	levels := make([]model.PriceLevel, 0, len(raw))
	for _, lvl := range raw {
		price, err := decimal.NewFromString(lvl[0])
		if err != nil {
			return nil, exception.ErrExchangeBadPayload.With("field", "price").With("value", lvl[0])
		}
		qty, err := decimal.NewFromString(lvl[1])
		if err != nil {
			return nil, exception.ErrExchangeBadPayload.With("field", "quantity").With("value", lvl[1])
		}
		levels = append(levels, model.PriceLevel{Price: price, Quantity: qty})
	}
	return levels, nil
}
