package strapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/yourorg/tourbook/internal/domain"
)

// Cache tags for catalog reads. User and reservation records are never
// cached beyond a single request.
const (
	TagTours        = "tours"
	TagDestinations = "destinations"
)

// Wire shapes follow the reference store's content model. The document slots
// are the Spanish-named media relations the CMS was built with.

type wireFile struct {
	ID        int    `json:"id"`
	URL       string `json:"url"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

type wireUser struct {
	ID             int       `json:"id"`
	DocumentID     string    `json:"documentId"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Nationality    string    `json:"nacionalidad"`
	Phone          string    `json:"telefono"`
	Passport       *wireFile `json:"Pasaporte"`
	Visa           *wireFile `json:"Visa"`
	PassportBlobID string    `json:"passportCloudinaryPublicId"`
	VisaBlobID     string    `json:"visaCloudinaryPublicId"`
}

const userPopulateQuery = "users/me?fields[0]=username&fields[1]=email&fields[2]=documentId" +
	"&fields[3]=passportCloudinaryPublicId&fields[4]=visaCloudinaryPublicId" +
	"&populate[Visa][fields][0]=url&populate[Visa][fields][1]=name&populate[Visa][fields][2]=createdAt" +
	"&populate[Pasaporte][fields][0]=url&populate[Pasaporte][fields][1]=name&populate[Pasaporte][fields][2]=createdAt"

// GetUser reads the authenticated user's record with both document slots.
func (c *Client) GetUser(ctx context.Context, token string) (*domain.User, error) {
	body, err := c.Request(ctx, userPopulateQuery, RequestOptions{BearerToken: token})
	if err != nil {
		return nil, err
	}

	var wu wireUser
	if err := json.Unmarshal(body, &wu); err != nil {
		return nil, fmt.Errorf("decoding user: %w", err)
	}

	return &domain.User{
		ID:          strconv.Itoa(wu.ID),
		Username:    wu.Username,
		Email:       wu.Email,
		Nationality: wu.Nationality,
		Phone:       wu.Phone,
		Passport:    toDocumentReference(wu.Passport, wu.PassportBlobID),
		Visa:        toDocumentReference(wu.Visa, wu.VisaBlobID),
	}, nil
}

// SetDocumentSlot writes both identifiers of a document slot on the user
// record. A nil ref clears the slot.
func (c *Client) SetDocumentSlot(ctx context.Context, token, userID string, kind domain.DocumentKind, ref *domain.DocumentReference) error {
	fileField := "Pasaporte"
	blobField := "passportCloudinaryPublicId"
	if kind == domain.KindVisa {
		fileField = "Visa"
		blobField = "visaCloudinaryPublicId"
	}

	payload := map[string]any{}
	if ref == nil {
		payload[fileField] = nil
		payload[blobField] = nil
	} else {
		fileID, err := strconv.Atoi(ref.ReferenceFileID)
		if err != nil {
			return fmt.Errorf("invalid reference file id %q: %w", ref.ReferenceFileID, err)
		}
		payload[fileField] = fileID
		payload[blobField] = ref.BlobObjectID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = c.Request(ctx, "users/"+userID, RequestOptions{
		Method:      http.MethodPut,
		Body:        body,
		BearerToken: token,
	})
	return err
}

// UploadMedia places a file in the media library and returns its id and url.
func (c *Client) UploadMedia(ctx context.Context, token string, data []byte, fileName, mimeType string) (string, string, error) {
	body, contentType, err := multipartBody("files", data, fileName, nil)
	if err != nil {
		return "", "", err
	}

	respBody, err := c.Request(ctx, "upload", RequestOptions{
		Method:      http.MethodPost,
		Body:        body,
		ContentType: contentType,
		BearerToken: token,
	})
	if err != nil {
		return "", "", err
	}

	var files []wireFile
	if err := json.Unmarshal(respBody, &files); err != nil {
		return "", "", fmt.Errorf("decoding upload response: %w", err)
	}
	if len(files) == 0 || files[0].ID == 0 {
		return "", "", fmt.Errorf("upload response missing file id")
	}
	return strconv.Itoa(files[0].ID), files[0].URL, nil
}

// DeleteMediaFile removes a media-library file record.
func (c *Client) DeleteMediaFile(ctx context.Context, token, fileID string) error {
	_, err := c.Request(ctx, "upload/files/"+fileID, RequestOptions{
		Method:      http.MethodDelete,
		BearerToken: token,
	})
	return err
}

type wireTour struct {
	ID          int     `json:"id"`
	DocumentID  string  `json:"documentId"`
	Name        string  `json:"nombre"`
	Description string  `json:"descripcion"`
	Price       float64 `json:"precio"`
	Location    string  `json:"ubicacion"`
	DurationMin int     `json:"duracion_min"`
	Image       *struct {
		URL string `json:"url"`
	} `json:"Image"`
	Categories []struct {
		Name string `json:"Nombre"`
	} `json:"categorias"`
}

type wireReservation struct {
	ID           int       `json:"id"`
	DocumentID   string    `json:"documentId"`
	Date         string    `json:"Fecha"`
	Message      string    `json:"Mensaje"`
	Signed       bool      `json:"documentoFirmado"`
	Tour         *wireTour `json:"tour_id"`
	ContractFile *wireFile `json:"contrato_generado"`
	SignedFile   *wireFile `json:"contrato_firmado"`
}

const reservationPopulate = "populate[tour_id][fields][0]=documentId&populate[tour_id][fields][1]=nombre" +
	"&populate[tour_id][fields][2]=descripcion&populate[tour_id][fields][3]=precio" +
	"&populate[tour_id][fields][4]=ubicacion&populate[tour_id][fields][5]=duracion_min" +
	"&populate[contrato_generado][fields][0]=url&populate[contrato_generado][fields][1]=name" +
	"&populate[contrato_firmado][fields][0]=url&populate[contrato_firmado][fields][1]=name"

// CreateReservation creates a booking for a tour.
func (c *Client) CreateReservation(ctx context.Context, token, userID string, tourID int, date, message string) (*domain.Reservation, error) {
	payload := map[string]any{
		"data": map[string]any{
			"users_permissions_user": userID,
			"tour_id":                tourID,
			"Fecha":                  date,
			"Mensaje":                message,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	respBody, err := c.Request(ctx, "reservas", RequestOptions{
		Method:      http.MethodPost,
		Body:        body,
		BearerToken: token,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data wireReservation `json:"data"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decoding reservation: %w", err)
	}
	res := toReservation(&parsed.Data)
	res.UserID = userID
	return res, nil
}

// ListReservations returns the user's reservations with tour and contract
// references populated.
func (c *Client) ListReservations(ctx context.Context, token, userID string) ([]*domain.Reservation, error) {
	path := "reservas?" + reservationPopulate +
		"&filters[users_permissions_user][documentId][$eq]=" + url.QueryEscape(userID)

	respBody, err := c.Request(ctx, path, RequestOptions{BearerToken: token})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data []wireReservation `json:"data"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decoding reservations: %w", err)
	}

	out := make([]*domain.Reservation, 0, len(parsed.Data))
	for i := range parsed.Data {
		res := toReservation(&parsed.Data[i])
		res.UserID = userID
		out = append(out, res)
	}
	return out, nil
}

// GetReservation returns a single reservation scoped to the user.
func (c *Client) GetReservation(ctx context.Context, token, reservationID, userID string) (*domain.Reservation, error) {
	path := "reservas/" + url.PathEscape(reservationID) + "?" + reservationPopulate +
		"&filters[users_permissions_user][documentId][$eq]=" + url.QueryEscape(userID)

	respBody, err := c.Request(ctx, path, RequestOptions{BearerToken: token})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data *wireReservation `json:"data"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decoding reservation: %w", err)
	}
	if parsed.Data == nil {
		return nil, domain.ErrNotFound
	}
	res := toReservation(parsed.Data)
	res.UserID = userID
	return res, nil
}

// SetSignedContract records the signed-contract file and flags the
// reservation as signed.
func (c *Client) SetSignedContract(ctx context.Context, token, reservationID, fileID string) error {
	id, err := strconv.Atoi(fileID)
	if err != nil {
		return fmt.Errorf("invalid file id %q: %w", fileID, err)
	}
	payload := map[string]any{
		"data": map[string]any{
			"documentoFirmado": true,
			"contrato_firmado": id,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = c.Request(ctx, "reservas/"+url.PathEscape(reservationID)+"/signed-contract", RequestOptions{
		Method:      http.MethodPut,
		Body:        body,
		BearerToken: token,
	})
	return err
}

// ListTours returns one page of the tour catalog, cached under the tours tag.
func (c *Client) ListTours(ctx context.Context, page, pageSize int) (*domain.TourPage, error) {
	path := fmt.Sprintf("tours?populate[Image][fields][0]=url&populate[categorias][fields][0]=Nombre"+
		"&pagination[page]=%d&pagination[pageSize]=%d", page, pageSize)

	respBody, err := c.Request(ctx, path, RequestOptions{CacheTags: []string{TagTours}})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data []wireTour `json:"data"`
		Meta struct {
			Pagination struct {
				Page      int `json:"page"`
				PageSize  int `json:"pageSize"`
				PageCount int `json:"pageCount"`
				Total     int `json:"total"`
			} `json:"pagination"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decoding tours: %w", err)
	}

	tours := make([]*domain.Tour, 0, len(parsed.Data))
	for i := range parsed.Data {
		tours = append(tours, toTour(&parsed.Data[i]))
	}
	return &domain.TourPage{
		Tours:     tours,
		Page:      parsed.Meta.Pagination.Page,
		PageSize:  parsed.Meta.Pagination.PageSize,
		PageCount: parsed.Meta.Pagination.PageCount,
		Total:     parsed.Meta.Pagination.Total,
	}, nil
}

// ListToursByDestination returns tours for one destination, cached under the
// destinations tag.
func (c *Client) ListToursByDestination(ctx context.Context, destination string) ([]*domain.Tour, error) {
	path := "tours?populate[Image][fields][0]=url&filters[ubicacion][$eq]=" + url.QueryEscape(destination)

	respBody, err := c.Request(ctx, path, RequestOptions{CacheTags: []string{TagDestinations}})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data []wireTour `json:"data"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decoding tours: %w", err)
	}

	out := make([]*domain.Tour, 0, len(parsed.Data))
	for i := range parsed.Data {
		out = append(out, toTour(&parsed.Data[i]))
	}
	return out, nil
}

func toDocumentReference(file *wireFile, blobID string) *domain.DocumentReference {
	if file == nil && blobID == "" {
		return nil
	}
	ref := &domain.DocumentReference{
		BlobObjectID: blobID,
		Status:       domain.StatusPending,
	}
	if file != nil {
		ref.ReferenceFileID = strconv.Itoa(file.ID)
		ref.FileName = file.Name
		ref.DisplayURL = file.URL
		if t, err := time.Parse(time.RFC3339, file.CreatedAt); err == nil {
			ref.UploadedAt = t
		}
	}
	return ref
}

func toFileRef(file *wireFile) *domain.FileRef {
	if file == nil {
		return nil
	}
	return &domain.FileRef{
		ID:   strconv.Itoa(file.ID),
		URL:  file.URL,
		Name: file.Name,
	}
}

func toTour(t *wireTour) *domain.Tour {
	out := &domain.Tour{
		ID:          t.ID,
		DocumentID:  t.DocumentID,
		Name:        t.Name,
		Description: t.Description,
		Price:       t.Price,
		Location:    t.Location,
		DurationMin: t.DurationMin,
	}
	if t.Image != nil {
		out.ImageURL = t.Image.URL
	}
	for _, cat := range t.Categories {
		out.Categories = append(out.Categories, cat.Name)
	}
	return out
}

func toReservation(r *wireReservation) *domain.Reservation {
	out := &domain.Reservation{
		ID:         strconv.Itoa(r.ID),
		DocumentID: r.DocumentID,
		Date:       r.Date,
		Message:    r.Message,
		Signed:     r.Signed,
	}
	if r.Tour != nil {
		out.Tour = toTour(r.Tour)
	}
	out.ContractGenerated = toFileRef(r.ContractFile)
	out.SignedContract = toFileRef(r.SignedFile)
	return out
}
