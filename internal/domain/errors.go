package domain

import "errors"

var (
	ErrValidation       = errors.New("некорректные данные")
	ErrStoreUnavailable = errors.New("хранилище документов недоступно")
	ErrUploadFailed     = errors.New("не удалось загрузить файл")
	ErrNotFound         = errors.New("не найдено")
	ErrForbidden        = errors.New("доступ запрещен")

	// ошибки источника захвата (камеры)
	ErrPermissionDenied = errors.New("нет доступа к камере")
	ErrDeviceError      = errors.New("ошибка устройства захвата")
	ErrSourceNotActive  = errors.New("камера не активна")
	ErrSourceBusy       = errors.New("камера уже запрашивается")
)
