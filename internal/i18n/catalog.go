package i18n

import ierr "github.com/vidinfra/docvault/internal/errors"

// catalog holds the display message for every error code, per locale
var catalog = map[string]map[string]string{
	"en": {
		ierr.ErrCodeNotFound:               "The requested resource was not found",
		ierr.ErrCodeAlreadyExists:          "The resource already exists",
		ierr.ErrCodeVersionConflict:        "The record was modified by someone else, reload it and try again",
		ierr.ErrCodeValidation:             "The request is invalid",
		ierr.ErrCodeInvalidOperation:       "This operation is not allowed",
		ierr.ErrCodePermissionDenied:       "You do not have permission to perform this action",
		ierr.ErrCodeRateLimited:            "Too many requests, try again shortly",
		ierr.ErrCodeDatabase:               "A storage error occurred",
		ierr.ErrCodeCache:                  "A cache error occurred",
		ierr.ErrCodeBroker:                 "A messaging error occurred",
		ierr.ErrCodeSystemError:            "An unexpected error occurred",
		ierr.ErrCodeAlreadyDeleted:         "The record is already deleted",
		ierr.ErrCodeNotDeleted:             "The record is not deleted",
		ierr.ErrCodeForbiddenFieldMutation: "This field cannot be changed directly",
	},
	"fr": {
		ierr.ErrCodeNotFound:               "La ressource demandée est introuvable",
		ierr.ErrCodeAlreadyExists:          "La ressource existe déjà",
		ierr.ErrCodeVersionConflict:        "L'enregistrement a été modifié par quelqu'un d'autre, rechargez-le puis réessayez",
		ierr.ErrCodeValidation:             "La requête est invalide",
		ierr.ErrCodeInvalidOperation:       "Cette opération n'est pas autorisée",
		ierr.ErrCodePermissionDenied:       "Vous n'avez pas la permission d'effectuer cette action",
		ierr.ErrCodeRateLimited:            "Trop de requêtes, réessayez dans un instant",
		ierr.ErrCodeDatabase:               "Une erreur de stockage est survenue",
		ierr.ErrCodeCache:                  "Une erreur de cache est survenue",
		ierr.ErrCodeBroker:                 "Une erreur de messagerie est survenue",
		ierr.ErrCodeSystemError:            "Une erreur inattendue est survenue",
		ierr.ErrCodeAlreadyDeleted:         "L'enregistrement est déjà supprimé",
		ierr.ErrCodeNotDeleted:             "L'enregistrement n'est pas supprimé",
		ierr.ErrCodeForbiddenFieldMutation: "Ce champ ne peut pas être modifié directement",
	},
}

// custom validator tags, per locale
var tagCatalog = map[string]map[string]string{
	"en": {
		"objectid": "{0} must be a valid object id",
		"tagname":  "{0} must be lowercase letters, digits, '-' or '_' (max 32)",
	},
	"fr": {
		"objectid": "{0} doit être un identifiant d'objet valide",
		"tagname":  "{0} doit contenir des minuscules, chiffres, '-' ou '_' (32 max)",
	},
}
