package payloads

// Типы событий жизненного цикла фотографии
const (
	PhotoUploaded = "photo.uploaded"
	PhotoDeleted  = "photo.deleted"
)

// PhotoEventPayload представляет событие о фотографии профиля,
// которое публикуется в RabbitMQ и обрабатывается воркером.
type PhotoEventPayload struct {
	Type      string `json:"type"`
	PhotoID   string `json:"photo_id"`
	OwnerID   string `json:"owner_id"`
	ObjectKey string `json:"object_key,omitempty"`
}
