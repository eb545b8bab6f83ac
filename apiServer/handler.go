package apiServer

import (
	"encoding/json"
	"net/http"

	"github.com/i5heu/ouroboros-vault/pkg/storage"
	"github.com/i5heu/ouroboros-vault/pkg/types"
	"github.com/sirupsen/logrus"
)

const defaultImageExtension = ".png"

type vaultListing struct {
	Vault   string   `json:"vault"`
	Type    string   `json:"type"`
	Entries []string `json:"entries"`
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	vaultName := r.PathValue("vault")
	entryKey := r.PathValue("entryKey")
	if entryKey == "" {
		writeStatus(w, http.StatusNotFound)
		return
	}

	vault, ok := s.db.VaultByName(vaultName)
	if !ok {
		writeStatus(w, http.StatusNotFound)
		return
	}

	media, ok, err := s.db.LoadResource(r.Context(), vault.Type(), vaultName, entryKey)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"vault": vaultName,
			"entry": entryKey,
		}).Errorf("could not load resource: %v", err)
		writeStatus(w, http.StatusInternalServerError)
		return
	}
	if !ok {
		writeStatus(w, http.StatusNotFound)
		return
	}

	dto, err := types.ToDto(media)
	if err != nil {
		s.log.WithError(err).Error("could not convert resource")
		writeStatus(w, http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	vaultName := r.PathValue("vault")
	vault, ok := s.db.VaultByName(vaultName)
	if !ok {
		writeStatus(w, http.StatusNotFound)
		return
	}

	keys := vault.Entries()
	listing := vaultListing{
		Vault:   vaultName,
		Type:    vault.Type().String(),
		Entries: make([]string, 0, len(keys)),
	}
	for _, k := range keys {
		listing.Entries = append(listing.Entries, k.Key)
	}

	s.writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	vaultName := r.PathValue("vault")
	entryKey := r.PathValue("entryKey")

	vault, ok := s.db.VaultByName(vaultName)
	if !ok {
		writeStatus(w, http.StatusNotFound)
		return
	}
	if entryKey == "" {
		writeStatus(w, http.StatusBadRequest)
		return
	}

	var upload types.UploadDto
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err := dec.Decode(&upload); err != nil {
		s.log.WithField("vault", vaultName).Debugf("invalid upload body: %v", err)
		writeStatus(w, http.StatusBadRequest)
		return
	}

	key := types.NewEntryKey(entryKey, vault.Type())
	media, err := upload.Binary(vault.Type(), defaultExtension(vault, key))
	if err != nil {
		s.log.WithField("vault", vaultName).Debugf("invalid upload: %v", err)
		writeStatus(w, http.StatusBadRequest)
		return
	}

	if !s.db.RegisterResource(r.Context(), vault.Type(), vaultName, entryKey, media) {
		writeStatus(w, http.StatusInternalServerError)
		return
	}

	writeStatus(w, http.StatusOK)
}

// defaultExtension keeps the extension of an existing entry. New image entries
// default to .png.
func defaultExtension(vault *storage.Vault, key types.EntryKey) string {
	if meta, ok := vault.MetaData(key); ok && meta.Extension != "" {
		return meta.Extension
	}
	if vault.Type() == types.Image {
		return defaultImageExtension
	}
	return ""
}
