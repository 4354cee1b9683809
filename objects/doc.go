// Package objects implementa o roteador de chaves por tenant: derivação
// determinística da chave de armazenamento a partir das coordenadas do upload
// (usuário, organização, flag de compartilhamento, pasta, nome) e as operações
// put/get/list/delete sobre o object store S3-compatível.
//
// Camadas no padrão do gateway: domain (derivação pura + contratos),
// application (casos de uso), infra (S3), e este pacote com o adapter HTTP.
package objects
