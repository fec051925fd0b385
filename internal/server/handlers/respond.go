package handlers

import apperrors "github.com/namelens/domainsearch/internal/errors"

// respondWithError writes err as the standard error envelope and records it.
var respondWithError = apperrors.RespondWithError
