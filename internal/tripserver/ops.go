package tripserver

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) tokenOp() huma.Operation {
	return huma.Operation{
		OperationID: "token-exchange",
		Method:      http.MethodPost,
		Path:        "/api/v1/token",
		Summary:     "Exchange trip credentials for an access token",
		Tags:        []string{"auth"},
	}
}

func (h *Handler) collectionOp() huma.Operation {
	return huma.Operation{
		OperationID: "collection-get",
		Method:      http.MethodGet,
		Path:        "/api/v1/trip/{collection}",
		Summary:     "Fetch a collection snapshot with its revision",
		Tags:        []string{"trip"},
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) setRecordOp() huma.Operation {
	return huma.Operation{
		OperationID: "record-set",
		Method:      http.MethodPut,
		Path:        "/api/v1/trip/{collection}/{id}",
		Summary:     "Create or replace a record",
		Tags:        []string{"trip"},
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) deleteRecordOp() huma.Operation {
	return huma.Operation{
		OperationID: "record-delete",
		Method:      http.MethodDelete,
		Path:        "/api/v1/trip/{collection}/{id}",
		Summary:     "Delete a record",
		Tags:        []string{"trip"},
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) addUserOp() huma.Operation {
	return huma.Operation{
		OperationID: "users-add",
		Method:      http.MethodPost,
		Path:        "/api/v1/trip/users/add",
		Summary:     "Add a name to the trip roster",
		Tags:        []string{"trip"},
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) removeUserOp() huma.Operation {
	return huma.Operation{
		OperationID: "users-remove",
		Method:      http.MethodPost,
		Path:        "/api/v1/trip/users/remove",
		Summary:     "Remove a name from the trip roster",
		Tags:        []string{"trip"},
		Security:    []map[string][]string{{"bearer": {}}},
	}
}

func (h *Handler) healthOp() huma.Operation {
	return huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/healthz",
		Summary:     "Liveness probe",
		Tags:        []string{"ops"},
	}
}
