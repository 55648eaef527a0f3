package editor

import "errors"

var (
	ErrNoUploader        = errors.New("no upload handler configured")
	ErrUploadVetoed      = errors.New("upload vetoed")
	ErrEmptyResult       = errors.New("upload returned no url")
	ErrNoSelection       = errors.New("no image selected")
	ErrFigureNotFound    = errors.New("figure not found")
	ErrInvalidTransition = errors.New("invalid image state transition")
	ErrInvalidWidth      = errors.New("invalid width")
	ErrNotResizing       = errors.New("no resize in progress")
	ErrNotDragging       = errors.New("no drag in progress")
)

// Messages shown to the user.
const (
	MsgNoUploader   = "No hay un servicio de subida de imágenes configurado"
	MsgUploadVetoed = "La subida de la imagen no está permitida"
	MsgUploadFailed = "Error al subir la imagen"
	MsgUploading    = "Subiendo..."
	MsgLoadFailed   = "No se pudo cargar la imagen"
)
