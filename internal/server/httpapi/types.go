package httpapi

import (
	"time"

	"github.com/eternalsentinel/sentinel/internal/server/store/models"
)

type checkinStatusResponse struct {
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsExpired bool      `json:"isExpired"`
	UserName  string    `json:"userName"`
}

type checkinConfirmRequest struct {
	Token string `json:"token"`
}

type checkinConfirmResponse struct {
	NextCheckInDue time.Time `json:"nextCheckInDue"`
}

type adminCheckinRequest struct {
	UserID string `json:"userId"`
}

type adminTriggerRequest struct {
	UserID string `json:"userId"`
}

type trusteeAccessStatusResponse struct {
	TrusteeName     string     `json:"trusteeName"`
	UserName        string     `json:"userName"`
	AccessExpiresAt *time.Time `json:"accessExpiresAt"`
}

type trusteeAccessGrantRequest struct {
	AccessToken string `json:"accessToken"`
}

type vaultItemResponse struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Name          string    `json:"name"`
	EncryptedData []byte    `json:"encryptedData,omitempty"`
	Nonce         []byte    `json:"nonce,omitempty"`
	Metadata      string    `json:"metadata"`
	DownloadURL   string    `json:"downloadUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type vaultUploadURLResponse struct {
	StorageKey string `json:"storageKey"`
	UploadURL  string `json:"uploadUrl"`
}

type vaultResponse struct {
	EncryptedMasterKey []byte              `json:"encryptedMasterKey"`
	MasterKeySalt      []byte              `json:"masterKeySalt"`
	MasterKeyNonce     []byte              `json:"masterKeyNonce"`
	Items              []vaultItemResponse `json:"items"`
}

type trusteeVaultResponse struct {
	Vault           vaultResponse `json:"vault"`
	AccessExpiresAt time.Time     `json:"accessExpiresAt"`
}

// vaultResponseFrom builds the wire shape from the (possibly absent, spec
// §3 "at most one vault") Vault row plus its items. resolveDownloadURL is
// called only for items stored in the Vault Blob Store (StorageKey set); a
// small inline item never needs it.
func vaultResponseFrom(v *models.Vault, items []*models.VaultItem, resolveDownloadURL func(storageKey string) string) vaultResponse {
	out := vaultResponse{Items: make([]vaultItemResponse, 0, len(items))}
	if v != nil {
		out.EncryptedMasterKey = v.EncryptedMasterKey
		out.MasterKeySalt = v.MasterKeySalt
		out.MasterKeyNonce = v.MasterKeyNonce
	}
	for _, it := range items {
		item := vaultItemResponse{
			ID:            it.ID,
			Type:          it.Type,
			Name:          it.Name,
			EncryptedData: it.EncryptedData,
			Nonce:         it.Nonce,
			Metadata:      it.Metadata,
			CreatedAt:     it.CreatedAt,
		}
		if it.StorageKey != nil && resolveDownloadURL != nil {
			item.DownloadURL = resolveDownloadURL(*it.StorageKey)
		}
		out.Items = append(out.Items, item)
	}
	return out
}
