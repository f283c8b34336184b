package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"maharaja/pkg/model"
)

const idempotencyKeyHeader = "Idempotency-Key"

// ReservationClient drives the reservation API over HTTP. It is used by
// smoke tests and operator tooling.
type ReservationClient struct {
	httpClient *HttpClient
}

func NewReservationClient(baseUrl string) *ReservationClient {
	return &ReservationClient{
		httpClient: NewHttpClient(baseUrl),
	}
}

// WithToken returns a client that sends token as the bearer credential.
func (c *ReservationClient) WithToken(token string) *ReservationClient {
	return &ReservationClient{httpClient: c.httpClient.WithHeader("Authorization", "Bearer "+token)}
}

func (c *ReservationClient) ListResources(kind model.ResourceKind, limit int, offset int64) (*Response, error) {
	q := url.Values{}
	if kind != "" {
		q.Set("kind", string(kind))
	}
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("offset", fmt.Sprintf("%d", offset))
	return c.httpClient.GET("/api/v1/resources?" + q.Encode())
}

func (c *ReservationClient) Availability(resourceID string, checkIn, checkOut time.Time) (*Response, error) {
	q := url.Values{}
	q.Set("check_in", checkIn.UTC().Format(time.RFC3339))
	q.Set("check_out", checkOut.UTC().Format(time.RFC3339))
	path := "/api/v1/resources/id/" + url.PathEscape(resourceID) + "/availability?" + q.Encode()
	return c.httpClient.GET(path)
}

// CreateBooking sends key as the Idempotency-Key when it is not empty.
func (c *ReservationClient) CreateBooking(req *model.BookingRequest, key string) (*Response, error) {
	var headers map[string]string
	if key != "" {
		headers = map[string]string{idempotencyKeyHeader: key}
	}
	return c.httpClient.POSTWithHeaders("/api/v1/bookings", req, headers)
}

func (c *ReservationClient) GetBooking(id string) (*Response, error) {
	return c.httpClient.GET("/api/v1/bookings/id/" + url.PathEscape(id))
}

func (c *ReservationClient) ListMine(limit int, offset int64) (*Response, error) {
	return c.httpClient.GET(fmt.Sprintf("/api/v1/bookings/mine?limit=%d&offset=%d", limit, offset))
}

func (c *ReservationClient) CancelBooking(id, reason string) (*Response, error) {
	path := "/api/v1/bookings/id/" + url.PathEscape(id) + "/cancel"
	return c.httpClient.POST(path, model.CancelRequest{Reason: reason})
}

func (c *ReservationClient) CreateOrder(bookingID string, amount int64) (*Response, error) {
	return c.httpClient.POST("/api/v1/payments/orders", model.OrderRequest{BookingID: bookingID, Amount: amount})
}

func (c *ReservationClient) VerifyPayment(req *model.CallbackRequest) (*Response, error) {
	return c.httpClient.POST("/api/v1/payments/verify", req)
}

func (c *ReservationClient) Refund(bookingID, reason string) (*Response, error) {
	return c.httpClient.POST("/api/v1/payments/refunds", model.RefundRequest{BookingID: bookingID, Reason: reason})
}

// DecodeData unwraps the {"data": ...} envelope into target.
func DecodeData(resp *Response, target any) error {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return fmt.Errorf("could not decode response wrapper:\n%+v\n%s", resp.ToString(), err)
	}
	if err := json.Unmarshal(wrapper.Data, target); err != nil {
		return fmt.Errorf("could not decode response data:\n%+v\n%s", resp.ToString(), err)
	}
	return nil
}

func (c *ReservationClient) DecodeBooking(resp *Response) (*model.Booking, error) {
	var booking model.Booking
	if err := DecodeData(resp, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *ReservationClient) DecodeBookings(resp *Response) ([]*model.Booking, *Metadata, error) {
	var wrapper struct {
		Data       json.RawMessage `json:"data"`
		TotalCount int64           `json:"total_count"`
		Limit      int             `json:"limit"`
		Offset     int64           `json:"offset"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, nil, fmt.Errorf("could not decode paginated resp:\n%+v\n%s", resp.ToString(), err)
	}

	var bookings []*model.Booking
	if err := json.Unmarshal(wrapper.Data, &bookings); err != nil {
		return nil, nil, fmt.Errorf("could not decode booking list:\n%+v\n%s", resp.ToString(), err)
	}

	return bookings, &Metadata{
		TotalCount: wrapper.TotalCount,
		Limit:      wrapper.Limit,
		Offset:     wrapper.Offset,
	}, nil
}
