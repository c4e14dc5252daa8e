package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"path"
	"strings"
	"text/template"
	"time"

	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"

	"github.com/rishabhv97/kiwisqft/internal/cache"
	"github.com/rishabhv97/kiwisqft/internal/config"
	"github.com/rishabhv97/kiwisqft/internal/email"
	"github.com/rishabhv97/kiwisqft/internal/pricing"
	"github.com/rishabhv97/kiwisqft/internal/repository"
	"github.com/rishabhv97/kiwisqft/internal/storage"
)

// TaskType defines the type of a background task.
const (
	TypeImageNormalise = "image:normalise"
	TypeLeadNotify     = "lead:notify"
)

const (
	QueueImages  = "images"
	QueueDefault = "default"
)

// IAsynqClient is the part of *asynq.Client used to enqueue work.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// --- Task Client (Enqueuing tasks) ---

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	o := rdb.Options()
	return asynq.RedisClientOpt{Addr: o.Addr, Password: o.Password, DB: o.DB}
}

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// ImageTaskPayload identifies an uploaded listing photo.
type ImageTaskPayload struct {
	ListingID string `json:"listing_id"`
	S3Key     string `json:"s3_key"`
	URL       string `json:"url"`
}

// NewImageNormaliseTask asks a worker to shrink and re-encode an upload.
func NewImageNormaliseTask(listingID, key, url string) (*asynq.Task, error) {
	payload, err := json.Marshal(ImageTaskPayload{ListingID: listingID, S3Key: key, URL: url})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image task payload: %w", err)
	}
	return asynq.NewTask(TypeImageNormalise, payload, asynq.Queue(QueueImages), asynq.MaxRetry(5)), nil
}

// LeadTaskPayload identifies a lead whose seller must be told about it.
type LeadTaskPayload struct {
	LeadID string `json:"lead_id"`
}

// NewLeadNotifyTask asks a worker to e-mail the seller about a new lead.
func NewLeadNotifyTask(leadID string) (*asynq.Task, error) {
	payload, err := json.Marshal(LeadTaskPayload{LeadID: leadID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lead task payload: %w", err)
	}
	return asynq.NewTask(TypeLeadNotify, payload, asynq.Queue(QueueDefault), asynq.MaxRetry(10)), nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg         *config.Config
	emailSender email.Sender
	images      storage.IImageStore
	listings    repository.IListingRepository
	leads       repository.ILeadRepository
	profiles    repository.IProfileRepository
	searchCache cache.ISearchCache
	now         func() time.Time
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	images storage.IImageStore,
	listings repository.IListingRepository,
	leads repository.ILeadRepository,
	profiles repository.IProfileRepository,
	searchCache cache.ISearchCache,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:         cfg,
		emailSender: emailSender,
		images:      images,
		listings:    listings,
		leads:       leads,
		profiles:    profiles,
		searchCache: searchCache,
		now:         time.Now,
	}
}

// SetupServer configures the asynq server for the background worker. The
// caller runs it with the processor's Mux.
func SetupServer(rdb *redis.Client) *asynq.Server {
	return asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Queues: map[string]int{
				QueueImages:  5,
				QueueDefault: 3,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				slog.Error("task failed", "type", task.Type(), "payload", string(task.Payload()), "error", err)
			}),
			Logger: newAsynqLogger(),
		},
	)
}

// Mux registers every handler of p.
func (p *TaskProcessor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeImageNormalise, p.HandleImageNormaliseTask)
	mux.HandleFunc(TypeLeadNotify, p.HandleLeadNotifyTask)
	return mux
}

// --- Task Handlers ---

// HandleImageNormaliseTask downsizes an uploaded photo that exceeds the
// configured dimension and re-encodes it as JPEG. A photo whose key changes
// is swapped on the listing.
func (p *TaskProcessor) HandleImageNormaliseTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}
	log := slog.With("listing_id", payload.ListingID, "key", payload.S3Key)

	data, contentType, err := p.images.Get(ctx, payload.S3Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return fmt.Errorf("image %s not found: %w", payload.S3Key, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to download image: %w", err)
	}

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	if int64(len(data)) > maxSizeBytes {
		return fmt.Errorf("image exceeds %d MB: %w", p.cfg.ImageMaxSizeMB, asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("unsupported image format or corrupt image: %w", asynq.SkipRetry)
	}

	maxDim := uint(p.cfg.ImageMaxDimension)
	bounds := img.Bounds()
	if uint(bounds.Dx()) <= maxDim && uint(bounds.Dy()) <= maxDim && format == "jpeg" {
		log.Debug("image already normalised", "width", bounds.Dx(), "height", bounds.Dy())
		return nil
	}

	out := img
	if uint(bounds.Dx()) > maxDim || uint(bounds.Dy()) > maxDim {
		out = resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: 85}); err != nil {
		return fmt.Errorf("failed to re-encode image: %w", err)
	}

	newKey := strings.TrimSuffix(payload.S3Key, path.Ext(payload.S3Key)) + ".jpg"
	if err := p.images.Put(ctx, newKey, buf.Bytes(), "image/jpeg"); err != nil {
		return fmt.Errorf("failed to upload normalised image: %w", err)
	}

	if newKey != payload.S3Key {
		newURL := p.images.PublicURL(newKey)
		if err := p.listings.ReplaceImage(ctx, payload.ListingID, payload.URL, newURL); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("listing or image gone: %w", asynq.SkipRetry)
			}
			return fmt.Errorf("failed to update listing image: %w", err)
		}
		if err := p.searchCache.Invalidate(ctx); err != nil {
			log.Warn("search cache not invalidated", "error", err)
		}
	}

	log.Info("image normalised", "from", contentType, "width", out.Bounds().Dx(), "height", out.Bounds().Dy(), "bytes", buf.Len())
	return nil
}

var leadEmail = template.Must(template.New("lead").Parse(`Hello {{.SellerName}},

You have a new enquiry for "{{.Title}}"{{if .Price}} ({{.Price}}){{end}}.

Name:  {{.BuyerName}}
Phone: {{.BuyerPhone}}
{{- if .BuyerEmail}}
Email: {{.BuyerEmail}}
{{- end}}

{{if .Message}}Message:
{{.Message}}

{{end}}See all your leads at {{.DashboardURL}}
`))

type leadEmailData struct {
	SellerName   string
	Title        string
	Price        string
	BuyerName    string
	BuyerPhone   string
	BuyerEmail   string
	Message      string
	DashboardURL string
}

// HandleLeadNotifyTask e-mails the seller about a new lead once.
func (p *TaskProcessor) HandleLeadNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload LeadTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal lead task payload: %v: %w", err, asynq.SkipRetry)
	}

	lead, err := p.leads.Get(ctx, payload.LeadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("lead %s not found: %w", payload.LeadID, asynq.SkipRetry)
		}
		return err
	}
	if lead.Notified {
		return nil
	}

	title := repository.UnknownPropertyTitle
	price := ""
	if listing, err := p.listings.Get(ctx, lead.ListingID); err == nil {
		title = listing.Title
		price = "₹ " + pricing.AmountInWords(listing.Price)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	seller, err := p.profiles.Get(ctx, lead.SellerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("seller %s has no profile: %w", lead.SellerID, asynq.SkipRetry)
		}
		return err
	}
	if seller.Email == "" {
		return fmt.Errorf("seller %s has no e-mail address: %w", seller.ID, asynq.SkipRetry)
	}

	var body bytes.Buffer
	err = leadEmail.Execute(&body, leadEmailData{
		SellerName:   seller.FullName,
		Title:        title,
		Price:        price,
		BuyerName:    lead.BuyerName,
		BuyerPhone:   lead.BuyerPhone,
		BuyerEmail:   lead.BuyerEmail,
		Message:      lead.Message,
		DashboardURL: strings.TrimRight(p.cfg.AppBaseURL, "/") + "/dashboard",
	})
	if err != nil {
		return fmt.Errorf("failed to render lead e-mail: %v: %w", err, asynq.SkipRetry)
	}

	subject := "New enquiry for " + title
	msg := email.BuildMessage(p.cfg.SmtpFromAddress, seller.Email, subject, body.String(), p.now())
	if err := p.emailSender.Send(ctx, []string{seller.Email}, subject, msg); err != nil {
		return fmt.Errorf("failed to send lead e-mail: %w", err)
	}

	if err := p.leads.MarkNotified(ctx, lead.ID); err != nil {
		return fmt.Errorf("lead e-mail sent but not recorded: %w", err)
	}
	slog.Info("seller notified of lead", "lead_id", lead.ID, "seller_id", seller.ID)
	return nil
}
