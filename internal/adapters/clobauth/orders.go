package clobauth

// orders.go — order placement and polling, adapted from the teacher's
// trading.go. MARTIN only ever places a single BUY limit order per
// trade and polls it to a terminal status, so the broader portfolio
// surface (cancel-all, balances, neg-risk lookups) is left out.

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"

	gomodel "github.com/polymarket/go-order-utils/pkg/model"
	"github.com/shopspring/decimal"
)

type orderRequest struct {
	Order     orderBody `json:"order"`
	Owner     string    `json:"owner"`
	OrderType string    `json:"orderType"`
}

type orderBody struct {
	Salt          json.Number `json:"salt"`
	Maker         string      `json:"maker"`
	Signer        string      `json:"signer"`
	Taker         string      `json:"taker"`
	TokenID       string      `json:"tokenId"`
	MakerAmount   string      `json:"makerAmount"`
	TakerAmount   string      `json:"takerAmount"`
	Expiration    string      `json:"expiration"`
	Nonce         string      `json:"nonce"`
	FeeRateBps    string      `json:"feeRateBps"`
	Side          string      `json:"side"`
	SignatureType int         `json:"signatureType"`
	Signature     string      `json:"signature"`
}

type orderResponse struct {
	ErrorMsg     string `json:"errorMsg"`
	OrderID      string `json:"orderID"`
	TakingAmount string `json:"takingAmount"`
	MakingAmount string `json:"makingAmount"`
	Status       string `json:"status"`
	Success      bool   `json:"success"`
}

type orderStatusResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	SizeMatched string `json:"size_matched"`
	Price       string `json:"price"`
}

// PlaceResult is the raw CLOB response to a BUY submission.
type PlaceResult struct {
	OrderID string
	Status  string
}

// StatusResult is the raw CLOB response to an order status poll.
type StatusResult struct {
	Status      string
	SizeMatched decimal.Decimal
	Price       decimal.Decimal
}

// PlaceBuy signs and submits a BUY limit order for tokenID at price,
// sized to spend at most stake units of collateral: the share count is
// rounded down to 0.01 shares.
func (ac *AuthClient) PlaceBuy(ctx context.Context, tokenID string, price, stake decimal.Decimal) (PlaceResult, error) {
	if err := ac.EnsureCreds(ctx); err != nil {
		return PlaceResult{}, fmt.Errorf("clobauth: place buy: creds: %w", err)
	}

	signed, err := ac.buildSignedOrder(tokenID, price, stake)
	if err != nil {
		return PlaceResult{}, fmt.Errorf("clobauth: place buy: sign: %w", err)
	}

	body := orderRequest{
		Order: orderBody{
			Salt:          json.Number(signed.Order.Salt.String()),
			Maker:         signed.Order.Maker.Hex(),
			Signer:        signed.Order.Signer.Hex(),
			Taker:         signed.Order.Taker.Hex(),
			TokenID:       tokenID,
			MakerAmount:   signed.Order.MakerAmount.String(),
			TakerAmount:   signed.Order.TakerAmount.String(),
			Expiration:    signed.Order.Expiration.String(),
			Nonce:         signed.Order.Nonce.String(),
			FeeRateBps:    signed.Order.FeeRateBps.String(),
			Side:          "BUY",
			SignatureType: int(signed.Order.SignatureType.Int64()),
			Signature:     "0x" + hex.EncodeToString(signed.Signature),
		},
		Owner:     ac.creds.APIKey,
		OrderType: "GTC",
	}

	var resp orderResponse
	if err := ac.doL2(ctx, http.MethodPost, "/order", body, &resp); err != nil {
		return PlaceResult{}, fmt.Errorf("clobauth: place buy: post: %w", err)
	}
	if !resp.Success || resp.ErrorMsg != "" {
		return PlaceResult{}, fmt.Errorf("clobauth: place buy: clob error: %s", resp.ErrorMsg)
	}
	return PlaceResult{OrderID: resp.OrderID, Status: resp.Status}, nil
}

// OrderStatus polls the current status of a previously placed order.
func (ac *AuthClient) OrderStatus(ctx context.Context, orderID string) (StatusResult, error) {
	if err := ac.EnsureCreds(ctx); err != nil {
		return StatusResult{}, fmt.Errorf("clobauth: order status: creds: %w", err)
	}

	var resp orderStatusResponse
	if err := ac.doL2(ctx, http.MethodGet, "/data/order/"+orderID, nil, &resp); err != nil {
		return StatusResult{}, fmt.Errorf("clobauth: order status: %w", err)
	}

	return StatusResult{
		Status:      resp.Status,
		SizeMatched: parseDecimalOrZero(resp.SizeMatched),
		Price:       parseDecimalOrZero(resp.Price),
	}, nil
}

// CancelOrder cancels a resting order by its CLOB order id.
func (ac *AuthClient) CancelOrder(ctx context.Context, orderID string) error {
	if err := ac.EnsureCreds(ctx); err != nil {
		return fmt.Errorf("clobauth: cancel: creds: %w", err)
	}
	if err := ac.doL2(ctx, http.MethodDelete, "/order/"+orderID, nil, nil); err != nil {
		return fmt.Errorf("clobauth: cancel %s: %w", orderID, err)
	}
	return nil
}

// buildSignedOrder creates an EIP-712 signed BUY order. price and stake
// are in USDC units (e.g., 0.62 and 25.0). Integer arithmetic avoids
// the floating-point rounding the CLOB API rejects — it verifies
// makerAmount == price * takerAmount exactly.
func (ac *AuthClient) buildSignedOrder(tokenID string, price, stake decimal.Decimal) (*gomodel.SignedOrder, error) {
	priceF, _ := price.Float64()
	stakeF, _ := stake.Float64()

	precision := detectPricePrecision(priceF)
	priceInt := int64(math.Round(priceF * float64(precision)))
	sharesCents := int64(math.Floor(stakeF / priceF * 100))

	amountFactor := int64(1_000_000) / (100 * precision)
	makerAmount := sharesCents * priceInt * amountFactor
	takerAmount := sharesCents * 10000
	if makerAmount <= 0 || takerAmount <= 0 {
		return nil, fmt.Errorf("invalid amounts: maker=%d taker=%d (price=%.4f stake=%.4f)", makerAmount, takerAmount, priceF, stakeF)
	}

	orderData := &gomodel.OrderData{
		Maker:         ac.address.Hex(),
		Taker:         zeroAddress,
		TokenId:       tokenID,
		MakerAmount:   strconv.FormatInt(makerAmount, 10),
		TakerAmount:   strconv.FormatInt(takerAmount, 10),
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        ac.address.Hex(),
		Expiration:    "0",
		Side:          gomodel.BUY,
		SignatureType: gomodel.EOA,
	}

	signed, err := ac.orderBuilder.BuildSignedOrder(ac.privateKey, orderData, gomodel.CTFExchange)
	if err != nil {
		return nil, fmt.Errorf("build signed order: %w", err)
	}
	return signed, nil
}

// detectPricePrecision returns the multiplier matching the market's
// tick size, e.g. price=0.60 -> 100 (tick 0.01), price=0.673 -> 1000.
func detectPricePrecision(price float64) int64 {
	for _, prec := range []int64{100, 1000, 10000} {
		rounded := math.Round(price * float64(prec))
		if math.Abs(rounded/float64(prec)-price) < 1e-10 {
			return prec
		}
	}
	return 100
}

func parseDecimalOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
